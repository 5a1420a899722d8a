package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-storefront-bot/internal/domain"
)

type catalogReader interface {
	List(ctx context.Context) ([]domain.Service, error)
}

// CatalogHandler exposes the service catalog read-only.
type CatalogHandler struct {
	catalog catalogReader
}

func NewCatalogHandler(c catalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.List(r.Context())
	if err != nil {
		slog.Error("list catalog", "err", err)
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	if services == nil {
		services = []domain.Service{}
	}
	writeJSON(w, http.StatusOK, ServicesEnvelope{Data: services})
}
