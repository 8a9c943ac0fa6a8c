package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// undefinedTable is the SQLSTATE Postgres returns for a missing relation.
const undefinedTable = "42P01"

type SchemaStore struct {
	db DB
}

var _ ports.SchemaVersionStore = (*SchemaStore)(nil)

func NewSchemaStore(db DB) *SchemaStore {
	return &SchemaStore{db: db}
}

// LatestVersion reports ok=false when no migration was ever applied,
// including when the marker table does not exist yet.
func (s *SchemaStore) LatestVersion(ctx context.Context) (int, bool, error) {
	var version int
	err := s.db.QueryRow(ctx, `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, domain.NewStoreError("schema version", err)
	}
	return version, true, nil
}

// Migration is one embedded SQL file, versioned by its numeric prefix.
type Migration struct {
	Version  int
	Filename string
	SQL      string
}

// Migrations lists the embedded migrations in version order.
func Migrations() ([]Migration, error) {
	return loadMigrations(migrationFiles, "migrations")
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: missing version prefix", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: invalid version prefix %q", name, prefix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration %s: version %d already used by %s", name, version, prev)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, Migration{Version: version, Filename: name, SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every embedded migration newer than the recorded version,
// each in its own transaction, and returns the resulting version.
func Migrate(ctx context.Context, db DB) (int, error) {
	migrations, err := Migrations()
	if err != nil {
		return 0, err
	}
	return applyMigrations(ctx, db, migrations)
}

func applyMigrations(ctx context.Context, db DB, migrations []Migration) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("db required")
	}
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER PRIMARY KEY,
			filename   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return 0, fmt.Errorf("create schema_version: %w", err)
	}

	current, _, err := NewSchemaStore(db).LatestVersion(ctx)
	if err != nil {
		return 0, err
	}

	log := logging.Ctx(ctx)
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return current, err
		}
		current = m.Version
		log.Info().Int("version", m.Version).Str("file", m.Filename).Msg("applied migration")
	}
	return current, nil
}

func applyOne(ctx context.Context, db DB, m Migration) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("apply migration %s: %w", m.Filename, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version, filename) VALUES ($1, $2)`, m.Version, m.Filename); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("mark migration %s: %w", m.Filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Filename, err)
	}
	return nil
}
