package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/RyanrealAF/Labcoat/internal/adapters/http/middleware"
	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

const (
	maxQueryBody         = 1 << 20
	DefaultAppendTimeout = 2 * time.Second
)

type QueryHandler struct {
	ledger        ports.RequestLedger
	searcher      ports.Searcher
	appendTimeout time.Duration
	now           func() time.Time
}

func NewQueryHandler(ledger ports.RequestLedger, searcher ports.Searcher, appendTimeout time.Duration) *QueryHandler {
	if appendTimeout <= 0 {
		appendTimeout = DefaultAppendTimeout
	}
	return &QueryHandler{ledger: ledger, searcher: searcher, appendTimeout: appendTimeout, now: time.Now}
}

// ServeHTTP records the request in the ledger before validating it, so
// malformed traffic still counts towards the scanner's aggregates.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	decodeErr := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody)).Decode(&req)
	req.Query = strings.TrimSpace(req.Query)

	h.record(r.Context(), middleware.OriginFromContext(r.Context()), req.Query)

	if decodeErr != nil || req.Query == "" {
		WriteError(w, http.StatusBadRequest, "Missing query parameter")
		return
	}
	if req.TopK <= 0 {
		req.TopK = domain.DefaultTopK
	}

	resp, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("query failed")
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *QueryHandler) record(ctx context.Context, origin, text string) {
	if h.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.appendTimeout)
	defer cancel()
	if err := h.ledger.Append(ctx, origin, text, h.now()); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("origin", origin).Msg("failed to log query")
	}
}
