package middleware

import (
	"net/http"

	"github.com/goccy/go-json"
)

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Status int    `json:"status"`
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body.Status = status
	_ = json.NewEncoder(w).Encode(body)
}
