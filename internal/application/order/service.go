// Package order captures purchase intents from verified customers.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/go-storefront-bot/internal/infrastructure/metrics"
	"github.com/go-storefront-bot/internal/pkg/id"
	"github.com/go-storefront-bot/internal/pkg/validate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/go-storefront-bot/internal/application/order")

type Service interface {
	// Place records an order for a verified customer and notifies support once.
	// A repeated IdempotencyKey returns the order created by the first call.
	Place(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Order, error)
	ListByChat(ctx context.Context, chatID int64) ([]domain.Order, error)
}

type orderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListByChat(ctx context.Context, chatID int64) ([]domain.Order, error)
}

type directory interface {
	Get(ctx context.Context, chatID int64) (email string, ok bool, err error)
}

type catalog interface {
	Get(ctx context.Context, serviceID int) (*domain.Service, error)
}

// Notifier is told about every new order. Its failure never undoes the order.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, o domain.Order, email string) error
}

type service struct {
	repo      orderStore
	directory directory
	catalog   catalog
	notifier  Notifier
	metrics   *metrics.Metrics
	now       func() time.Time
}

type ServiceDeps struct {
	Repo      orderStore
	Directory directory
	Catalog   catalog
	Notifier  Notifier
	Metrics   *metrics.Metrics
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:      deps.Repo,
		directory: deps.Directory,
		catalog:   deps.Catalog,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

func (s *service) Place(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.Place")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", req.ChatID), attribute.Int("service_id", req.ServiceID))

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	// Verification is checked before the catalog: an unverified customer is
	// always sent to /setemail, whatever service id they pressed.
	email, ok, err := s.directory.Get(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotVerified
	}

	svc, err := s.catalog.Get(ctx, req.ServiceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("service %d: %w", req.ServiceID, domain.ErrUnknownService)
	}
	if err != nil {
		return nil, err
	}

	o := &domain.Order{
		OrderID:        id.New(),
		IdempotencyKey: req.IdempotencyKey,
		ChatID:         req.ChatID,
		Username:       req.Username,
		ServiceID:      svc.ID,
		ServiceTitle:   svc.Title,
		Price:          svc.Price,
		Email:          email,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			prev, getErr := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("load replayed order: %w", getErr)
			}
			slog.Info("order trigger replayed", "chat_id", req.ChatID, "order_id", prev.OrderID)
			s.metrics.IncOrderReplay()
			return prev, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.metrics.IncOrderPlaced()
	slog.Info("order placed", "chat_id", o.ChatID, "order_id", o.OrderID, "service_id", o.ServiceID)

	if err := s.notifier.NotifyNewOrder(ctx, *o, email); err != nil {
		slog.Error("order notification failed", "order_id", o.OrderID, "err", err)
	}
	return o, nil
}

func (s *service) ListByChat(ctx context.Context, chatID int64) ([]domain.Order, error) {
	orders, err := s.repo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
