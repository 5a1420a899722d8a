package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxUpdateBytes = 1 << 20

type updateSubmitter interface {
	Submit(ctx context.Context, u tgbotapi.Update) error
}

// WebhookHandler receives updates pushed by Telegram. The secret path segment
// is the only authentication Telegram offers for this bot API version.
type WebhookHandler struct {
	secret  []byte
	updates updateSubmitter
}

func NewWebhookHandler(secret string, updates updateSubmitter) *WebhookHandler {
	return &WebhookHandler{secret: []byte(secret), updates: updates}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	got := []byte(chi.URLParam(r, "secret"))
	if len(h.secret) == 0 || subtle.ConstantTimeCompare(got, h.secret) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var u tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	// Telegram retries non-2xx responses, so a full queue is reported as 503.
	if err := h.updates.Submit(r.Context(), u); err != nil {
		slog.Warn("webhook update not queued", "update_id", u.UpdateID, "err", err)
		writeError(w, http.StatusServiceUnavailable, "busy")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "ok"})
}
