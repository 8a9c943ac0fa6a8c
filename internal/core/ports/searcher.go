package ports

import (
	"context"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

// Searcher answers the business part of POST /query once every gate passed.
type Searcher interface {
	Search(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error)
}
