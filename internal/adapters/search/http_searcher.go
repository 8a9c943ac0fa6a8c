// Package search encaminha consultas aprovadas pelos gates ao serviço de busca.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
)

const (
	DefaultTimeout  = 10 * time.Second
	maxResponseBody = 4 << 20
)

var ErrUpstream = errors.New("search upstream failed")

type Config struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// HTTPSearcher POSTs the query to an upstream search service. With no URL
// configured it answers with an empty result set.
type HTTPSearcher struct {
	url    string
	client *http.Client
}

var _ ports.Searcher = (*HTTPSearcher)(nil)

func NewHTTPSearcher(cfg Config) *HTTPSearcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPSearcher{url: strings.TrimSpace(cfg.URL), client: client}
}

func (s *HTTPSearcher) Configured() bool {
	return s.url != ""
}

func (s *HTTPSearcher) Search(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error) {
	if req.TopK <= 0 {
		req.TopK = domain.DefaultTopK
	}
	if s.url == "" {
		return domain.QueryResponse{Query: req.Query, Results: []json.RawMessage{}}, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("encode query: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return domain.QueryResponse{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out domain.QueryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return domain.QueryResponse{}, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if out.Query == "" {
		out.Query = req.Query
	}
	if out.Results == nil {
		out.Results = []json.RawMessage{}
	}
	out.Count = len(out.Results)
	return out, nil
}
