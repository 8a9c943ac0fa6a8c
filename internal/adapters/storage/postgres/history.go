package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
)

type ThreatHistory struct {
	db DB
}

var _ ports.ThreatHistory = (*ThreatHistory)(nil)

func NewThreatHistory(db DB) *ThreatHistory {
	return &ThreatHistory{db: db}
}

func (h *ThreatHistory) Record(ctx context.Context, sig domain.ThreatSignature) error {
	_, err := h.db.Exec(ctx,
		`INSERT INTO threats (id, origin, pattern, confidence, frequency, detected_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), sig.Origin, string(sig.Pattern), sig.Confidence, sig.Frequency, sig.DetectedAt.UTC())
	return domain.NewStoreError("threat record", err)
}
