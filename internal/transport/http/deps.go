package http

import (
	"context"
	"net/http"

	"github.com/go-storefront-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CatalogReader is the minimal interface the router requires from the catalog.
type CatalogReader interface {
	List(ctx context.Context) ([]domain.Service, error)
}

// UpdateSubmitter accepts webhook updates for asynchronous handling.
type UpdateSubmitter interface {
	Submit(ctx context.Context, u tgbotapi.Update) error
}

// Deps holds everything the router serves.
type Deps struct {
	Catalog CatalogReader
	// Updates is nil in polling mode; the webhook route is then not mounted.
	Updates UpdateSubmitter
	// Checks are run by GET /v1/health-check/ready, keyed by component name.
	Checks  map[string]func(ctx context.Context) error
	Metrics http.Handler
}
