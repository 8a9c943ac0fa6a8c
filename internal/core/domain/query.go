package domain

import "github.com/goccy/go-json"

const DefaultTopK = 10

type QueryRequest struct {
	Query                string `json:"query"`
	TopK                 int    `json:"topK,omitempty"`
	IncludeRelationships bool   `json:"includeRelationships,omitempty"`
}

// QueryResponse mirrors the upstream search payload; results stay opaque.
type QueryResponse struct {
	Query   string            `json:"query"`
	Results []json.RawMessage `json:"results"`
	Count   int               `json:"count"`
}
