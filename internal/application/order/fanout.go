package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/go-storefront-bot/internal/infrastructure/metrics"
)

// Channel is a named Notifier, e.g. "telegram" or "sns".
type Channel struct {
	Name     string
	Notifier Notifier
}

// Fanout delivers to every channel; one failing channel does not stop the others.
type Fanout struct {
	channels []Channel
	metrics  *metrics.Metrics
}

func NewFanout(m *metrics.Metrics, channels ...Channel) *Fanout {
	return &Fanout{channels: channels, metrics: m}
}

func (f *Fanout) NotifyNewOrder(ctx context.Context, o domain.Order, email string) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Notifier.NotifyNewOrder(ctx, o, email); err != nil {
			f.metrics.IncNotifyFailure(ch.Name)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}
