package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-storefront-bot/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// ServicesEnvelope wraps the public catalog listing.
type ServicesEnvelope struct {
	Data  []domain.Service `json:"data"`
	Error string           `json:"error,omitempty"`
}

// ReadinessEnvelope reports the state of each checked component.
type ReadinessEnvelope struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
