// Package memory holds process-local implementations of every store. It backs
// STORE_DRIVER=memory, the conversation state when REDIS_URL is empty, and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-storefront-bot/internal/domain"
)

type IdentityRepo struct {
	mu    sync.RWMutex
	items map[int64]domain.Identity
}

func NewIdentityRepo() *IdentityRepo {
	return &IdentityRepo{items: make(map[int64]domain.Identity)}
}

func (r *IdentityRepo) Get(_ context.Context, chatID int64) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.items[chatID]
	if !ok {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	if i.Email != nil {
		email := *i.Email
		i.Email = &email
	}
	return &i, nil
}

func (r *IdentityRepo) EnsureExists(_ context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[i.ChatID]; ok {
		return nil
	}
	cp := *i
	if i.Email != nil {
		email := *i.Email
		cp.Email = &email
	}
	r.items[i.ChatID] = cp
	return nil
}

func (r *IdentityRepo) SetEmail(_ context.Context, chatID int64, email string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[chatID]
	if !ok {
		i = domain.Identity{ChatID: chatID, CreatedAt: now}
	}
	i.Email = &email
	i.UpdatedAt = now
	r.items[chatID] = i
	return nil
}

type ConfirmationRepo struct {
	mu    sync.RWMutex
	items map[int64]domain.Confirmation
}

func NewConfirmationRepo() *ConfirmationRepo {
	return &ConfirmationRepo{items: make(map[int64]domain.Confirmation)}
}

func (r *ConfirmationRepo) Replace(_ context.Context, c *domain.Confirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ChatID] = *c
	return nil
}

func (r *ConfirmationRepo) Get(_ context.Context, chatID int64) (*domain.Confirmation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[chatID]
	if !ok {
		return nil, fmt.Errorf("confirmation not found: %w", domain.ErrNotFound)
	}
	return &c, nil
}

func (r *ConfirmationRepo) MarkConfirmed(_ context.Context, chatID int64, challengeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[chatID]
	if !ok || c.ChallengeID != challengeID || c.Confirmed {
		return fmt.Errorf("challenge superseded or already confirmed: %w", domain.ErrConflict)
	}
	c.Confirmed = true
	r.items[chatID] = c
	return nil
}

// Len reports how many identities hold a challenge record.
func (r *ConfirmationRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

type OrderRepo struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	keys   map[string]string // idempotency key -> order id
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{
		orders: make(map[string]domain.Order),
		keys:   make(map[string]string),
	}
}

func (r *OrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[o.IdempotencyKey]; ok {
		return fmt.Errorf("order key %q already used: %w", o.IdempotencyKey, domain.ErrConflict)
	}
	if _, ok := r.orders[o.OrderID]; ok {
		return fmt.Errorf("order %s exists: %w", o.OrderID, domain.ErrConflict)
	}
	r.orders[o.OrderID] = *o
	r.keys[o.IdempotencyKey] = o.OrderID
	return nil
}

func (r *OrderRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orderID, ok := r.keys[key]
	if !ok {
		return nil, fmt.Errorf("order not found: %w", domain.ErrNotFound)
	}
	o := r.orders[orderID]
	return &o, nil
}

// ListByChat returns a chat's orders, newest first.
func (r *OrderRepo) ListByChat(_ context.Context, chatID int64) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.ChatID == chatID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID > out[j].OrderID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
