package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

func TestHTTPSearcher_ForwardsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tactics", req.Query)
		assert.Equal(t, domain.DefaultTopK, req.TopK)
		assert.True(t, req.IncludeRelationships)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"tactics","results":[{"score":0.9},{"score":0.8}],"count":2}`))
	}))
	defer server.Close()

	s := NewHTTPSearcher(Config{URL: server.URL, Client: server.Client()})
	resp, err := s.Search(context.Background(), domain.QueryRequest{Query: "tactics", IncludeRelationships: true})
	require.NoError(t, err)
	assert.Equal(t, "tactics", resp.Query)
	assert.Equal(t, 2, resp.Count)
	assert.JSONEq(t, `{"score":0.9}`, string(resp.Results[0]))
}

func TestHTTPSearcher_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewHTTPSearcher(Config{URL: server.URL, Client: server.Client()})
	_, err := s.Search(context.Background(), domain.QueryRequest{Query: "x"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestHTTPSearcher_UnconfiguredReturnsEmpty(t *testing.T) {
	s := NewHTTPSearcher(Config{})
	assert.False(t, s.Configured())

	resp, err := s.Search(context.Background(), domain.QueryRequest{Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", resp.Query)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Count)
}
