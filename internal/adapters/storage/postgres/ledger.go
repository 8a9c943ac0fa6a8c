package postgres

import (
	"context"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
)

type Ledger struct {
	db DB
}

var _ ports.RequestLedger = (*Ledger)(nil)

func NewLedger(db DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Append(ctx context.Context, origin, text string, at time.Time) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO query_log (origin, query, created_at) VALUES ($1, $2, $3)`,
		origin, text, at.UTC())
	return domain.NewStoreError("ledger append", err)
}

func (l *Ledger) CountByOrigin(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := l.db.Query(ctx,
		`SELECT origin, COUNT(*) FROM query_log WHERE created_at > $1 GROUP BY origin`,
		since.UTC())
	if err != nil {
		return nil, domain.NewStoreError("ledger count by origin", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			origin string
			count  int64
		)
		if err := rows.Scan(&origin, &count); err != nil {
			return nil, domain.NewStoreError("ledger scan row", err)
		}
		counts[origin] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("ledger rows", err)
	}
	return counts, nil
}

func (l *Ledger) CountAll(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM query_log WHERE created_at > $1`, since.UTC()).Scan(&n)
	if err != nil {
		return 0, domain.NewStoreError("ledger count all", err)
	}
	return n, nil
}

func (l *Ledger) CountTotal(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM query_log`).Scan(&n); err != nil {
		return 0, domain.NewStoreError("ledger count total", err)
	}
	return n, nil
}
