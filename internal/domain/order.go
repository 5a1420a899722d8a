package domain

import "time"

// Order is an immutable purchase intent. Service fields are copied at creation
// so later catalog edits never change history.
type Order struct {
	OrderID        string    `json:"id" dynamodbav:"order_id"`
	IdempotencyKey string    `json:"-" dynamodbav:"idempotency_key"`
	ChatID         int64     `json:"chat_id" dynamodbav:"chat_id"`
	Username       string    `json:"username" dynamodbav:"username"`
	ServiceID      int       `json:"service_id" dynamodbav:"service_id"`
	ServiceTitle   string    `json:"service_title" dynamodbav:"service_title"`
	Price          string    `json:"price" dynamodbav:"price"`
	Email          string    `json:"email" dynamodbav:"email"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}

// PlaceOrderRequest is what the chat layer submits when a customer presses "Order".
type PlaceOrderRequest struct {
	ChatID         int64  `validate:"required"`
	Username       string `validate:"required"`
	// ServiceID is not range-checked here; ids absent from the catalog,
	// including zero and negatives, surface as ErrUnknownService.
	ServiceID      int
	IdempotencyKey string `validate:"required,max=128"`
}
