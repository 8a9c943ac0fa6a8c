package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/metrics"
)

// RequiredSchemaVersion is the schema this build serves against.
const RequiredSchemaVersion = 1

// SchemaGate refuses to serve when the persisted schema is missing or older
// than RequiredSchemaVersion. It never migrates.
type SchemaGate struct {
	store    ports.SchemaVersionStore
	required int
}

func NewSchemaGate(store ports.SchemaVersionStore) *SchemaGate {
	return &SchemaGate{store: store, required: RequiredSchemaVersion}
}

func (g *SchemaGate) CheckSchema(ctx context.Context) error {
	version, ok, err := g.store.LatestVersion(ctx)
	if err != nil {
		metrics.SchemaGateFailures.WithLabelValues("store_error").Inc()
		return fmt.Errorf("read schema version: %w", err)
	}
	if !ok {
		metrics.SchemaGateFailures.WithLabelValues("not_initialized").Inc()
		return &domain.SchemaError{Reason: domain.ErrSchemaNotInitialized, Required: g.required}
	}
	if version < g.required {
		metrics.SchemaGateFailures.WithLabelValues("outdated").Inc()
		return &domain.SchemaError{Reason: domain.ErrSchemaOutdated, Current: version, Required: g.required}
	}
	return nil
}

// SchemaFailureReason maps a CheckSchema error to the short code used in responses.
func SchemaFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSchemaNotInitialized):
		return "schema_not_initialized"
	case errors.Is(err, domain.ErrSchemaOutdated):
		return "schema_outdated"
	default:
		return "schema_unavailable"
	}
}
