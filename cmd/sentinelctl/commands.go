package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanrealAF/Labcoat/internal/adapters/storage/postgres"
	"github.com/RyanrealAF/Labcoat/internal/app"
	"github.com/RyanrealAF/Labcoat/internal/config"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/core/services"
	"github.com/RyanrealAF/Labcoat/internal/integrity"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

const commandTimeout = 2 * time.Minute

type cycleRunner interface {
	RunCycle(ctx context.Context) services.CycleReport
}

// deps are the database-backed collaborators used by the operator commands.
type deps struct {
	killSwitch *services.KillSwitch
	schema     ports.SchemaVersionStore
	bans       ports.BanRegistry
	sentinel   cycleRunner
	migrate    func(ctx context.Context) (int, error)
	close      func()
}

var openDeps = func(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: "console"})

	core, err := app.NewCore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &deps{
		killSwitch: core.KillSwitch,
		schema:     core.Schema,
		bans:       core.Bans,
		sentinel:   core.Sentinel,
		migrate: func(ctx context.Context) (int, error) {
			return postgres.Migrate(ctx, core.Pool)
		},
		close: core.Close,
	}, nil
}

// withDeps runs fn with a bounded context and closes the deps afterwards.
func withDeps(cmd *cobra.Command, fn func(ctx context.Context, d *deps) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()
	return fn(ctx, d)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sentinelctl",
		Short:         "Operate the Sentinel access-control core",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(),
		newSchemaCmd(),
		newAPICmd(),
		newScanCmd(),
		newBansCmd(),
		newIntegrityCmd(),
		newDriftCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded migrations and record the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				version, err := d.migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (required %d)\n", version, services.RequiredSchemaVersion)
				return nil
			})
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the recorded schema version and the gate verdict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				version, ok, err := d.schema.LatestVersion(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintln(out, "schema: not initialized")
				} else {
					fmt.Fprintf(out, "schema: version %d\n", version)
				}
				if err := services.NewSchemaGate(d.schema).CheckSchema(ctx); err != nil {
					return err
				}
				fmt.Fprintf(out, "gate: ok (required %d)\n", services.RequiredSchemaVersion)
				return nil
			})
		},
	}
}

func newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Read or flip the api_enabled kill switch",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Re-enable the public API after an emergency shutdown",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDeps(cmd, func(ctx context.Context, d *deps) error {
					if err := d.killSwitch.Enable(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "api enabled")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable the public API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDeps(cmd, func(ctx context.Context, d *deps) error {
					if err := d.killSwitch.Disable(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "api disabled")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the kill switch state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDeps(cmd, func(ctx context.Context, d *deps) error {
					enabled, err := d.killSwitch.State(ctx)
					if err != nil {
						return err
					}
					state := "disabled"
					if enabled {
						state = "enabled"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "api %s\n", state)
					return nil
				})
			},
		},
	)
	return cmd
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one detection cycle now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				r := d.sentinel.RunCycle(ctx)
				fmt.Fprintf(cmd.OutOrStdout(),
					"cycle %s: %d signatures, %d bans (%d new), %d warnings, %d alerts, %d requests, overloaded=%t\n",
					r.ID, r.Signatures, r.Bans, r.NewBans, r.Warnings, r.Alerts, r.Health.Total, r.Health.Overloaded)
				return nil
			})
		},
	}
}

func newBansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bans",
		Short: "Inspect the ban registry",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print the number of banned origins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				n, err := d.bans.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d banned origins\n", n)
				return nil
			})
		},
	})
	return cmd
}

func newIntegrityCmd() *cobra.Command {
	var manifestPath, root string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check files against the SHA-256 manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, err := integrity.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			mismatches, err := integrity.Verify(root, manifest)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range mismatches {
				if m.Missing() {
					fmt.Fprintf(out, "MISSING %s (expected %s)\n", m.Path, m.Expected)
					continue
				}
				fmt.Fprintf(out, "TAMPERED %s\n  expected: %s\n  actual:   %s\n", m.Path, m.Expected, m.Actual)
			}
			if len(mismatches) > 0 {
				return fmt.Errorf("%d of %d files failed verification", len(mismatches), len(manifest))
			}
			fmt.Fprintf(out, "PASS: %d files verified\n", len(manifest))
			return nil
		},
	}
	verify.Flags().StringVar(&manifestPath, "manifest", "manifest.json", "path to the manifest JSON")
	verify.Flags().StringVar(&root, "root", ".", "directory manifest paths are relative to")

	cmd := &cobra.Command{Use: "integrity", Short: "Artifact integrity checks"}
	cmd.AddCommand(verify)
	return cmd
}

func newDriftCmd() *cobra.Command {
	var goldenPath, currentPath string
	var threshold float64
	measure := &cobra.Command{
		Use:   "measure",
		Short: "Compare current embeddings against a golden snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			golden, err := integrity.LoadEmbeddings(goldenPath)
			if err != nil {
				return err
			}
			current, err := integrity.LoadEmbeddings(currentPath)
			if err != nil {
				return err
			}
			report := integrity.MeasureDrift(golden, current, threshold)
			out := cmd.OutOrStdout()
			for _, id := range report.Missing {
				fmt.Fprintf(out, "missing %s from current embeddings\n", id)
			}
			if !report.Passed() {
				return fmt.Errorf("semantic drift detected in %v", report.Critical)
			}
			fmt.Fprintf(out, "PASS: %d embeddings within threshold\n", len(report.Scores))
			return nil
		},
	}
	measure.Flags().StringVar(&goldenPath, "golden", "vectors_snapshot.json", "golden embeddings snapshot")
	measure.Flags().StringVar(&currentPath, "current", "vectors.json", "current embeddings")
	measure.Flags().Float64Var(&threshold, "threshold", integrity.DefaultDriftThreshold, "minimum cosine similarity")

	cmd := &cobra.Command{Use: "drift", Short: "Semantic drift analysis"}
	cmd.AddCommand(measure)
	return cmd
}
