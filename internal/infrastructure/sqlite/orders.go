package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-storefront-bot/internal/domain"
)

// OrderRepo persists immutable orders. idempotency_key is UNIQUE.
type OrderRepo struct {
	db *DB
}

func NewOrderRepo(db *DB) *OrderRepo {
	return &OrderRepo{db: db}
}

const orderColumns = `order_id, idempotency_key, chat_id, username, service_id, service_title, price, email, created_at`

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	_, err := r.db.sqlDB.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.IdempotencyKey, o.ChatID, o.Username, o.ServiceID, o.ServiceTitle, o.Price, o.Email,
		toMillis(o.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order key %q already used: %w", o.IdempotencyKey, domain.ErrConflict)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	row := r.db.sqlDB.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE idempotency_key = ?`, key)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListByChat returns a chat's orders, newest first.
func (r *OrderRepo) ListByChat(ctx context.Context, chatID int64) ([]domain.Order, error) {
	rows, err := r.db.sqlDB.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE chat_id = ? ORDER BY created_at DESC, order_id DESC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*domain.Order, error) {
	var (
		o       domain.Order
		created int64
	)
	if err := s.Scan(&o.OrderID, &o.IdempotencyKey, &o.ChatID, &o.Username, &o.ServiceID,
		&o.ServiceTitle, &o.Price, &o.Email, &created); err != nil {
		return nil, err
	}
	o.CreatedAt = fromMillis(created)
	return &o, nil
}
