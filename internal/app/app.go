// Package app monta os colaboradores do Sentinel a partir da configuração,
// compartilhado pelo servidor e pelo sentinelctl.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RyanrealAF/Labcoat/internal/adapters/alert"
	"github.com/RyanrealAF/Labcoat/internal/adapters/storage/postgres"
	"github.com/RyanrealAF/Labcoat/internal/config"
	"github.com/RyanrealAF/Labcoat/internal/core/services"
)

// Core holds the Postgres-backed stores and the detection services.
type Core struct {
	Pool       *pgxpool.Pool
	Ledger     *postgres.Ledger
	Bans       *postgres.BanRegistry
	History    *postgres.ThreatHistory
	Config     *postgres.ConfigStore
	Schema     *postgres.SchemaStore
	Alerter    *alert.SlackAlerter
	KillSwitch *services.KillSwitch
	SchemaGate *services.SchemaGate
	Sentinel   *services.Sentinel
}

func NewCore(ctx context.Context, cfg config.Config) (*Core, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	c := &Core{
		Pool:    pool,
		Ledger:  postgres.NewLedger(pool),
		Bans:    postgres.NewBanRegistry(pool),
		History: postgres.NewThreatHistory(pool),
		Config:  postgres.NewConfigStore(pool),
		Schema:  postgres.NewSchemaStore(pool),
		Alerter: alert.NewSlackAlerter(alert.Config{
			WebhookURL:    cfg.Alert.SlackWebhookURL,
			Timeout:       cfg.Sentinel.CallTimeout,
			RatePerSecond: cfg.Alert.RatePerSecond,
		}),
	}

	sc := cfg.Sentinel
	c.KillSwitch = services.NewKillSwitch(c.Config, sc.CallTimeout)
	c.SchemaGate = services.NewSchemaGate(c.Schema)

	scanner := services.NewScanner(c.Ledger, services.ScannerConfig{
		Window:             sc.ScanWindow,
		FrequencyThreshold: sc.FrequencyThreshold,
		CallTimeout:        sc.CallTimeout,
	})
	dispatcher := services.NewDispatcher(c.Bans, c.History, c.Alerter, services.DispatcherConfig{
		CallTimeout: sc.CallTimeout,
	})
	health := services.NewHealthMonitor(c.Ledger, c.KillSwitch, c.Alerter, services.HealthMonitorConfig{
		Window:            sc.HealthWindow,
		OverloadThreshold: sc.OverloadThreshold,
		CallTimeout:       sc.CallTimeout,
	})
	c.Sentinel = services.NewSentinel(scanner, dispatcher, health, sc.DispatchWorkers)

	return c, nil
}

func (c *Core) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
