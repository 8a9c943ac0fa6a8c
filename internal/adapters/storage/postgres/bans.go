package postgres

import (
	"context"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
)

type BanRegistry struct {
	db DB
}

var _ ports.BanRegistry = (*BanRegistry)(nil)

func NewBanRegistry(db DB) *BanRegistry {
	return &BanRegistry{db: db}
}

func (r *BanRegistry) InsertIfAbsent(ctx context.Context, origin string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO banned_origins (origin) VALUES ($1) ON CONFLICT (origin) DO NOTHING`,
		origin)
	if err != nil {
		return false, domain.NewStoreError("ban insert", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BanRegistry) Contains(ctx context.Context, origin string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM banned_origins WHERE origin = $1)`,
		origin).Scan(&exists)
	if err != nil {
		return false, domain.NewStoreError("ban lookup", err)
	}
	return exists, nil
}

func (r *BanRegistry) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM banned_origins`).Scan(&n); err != nil {
		return 0, domain.NewStoreError("ban count", err)
	}
	return n, nil
}
