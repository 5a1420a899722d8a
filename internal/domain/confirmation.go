package domain

import "time"

// Confirmation is the pending e-mail challenge of one identity.
// PK: chat_id. Only the most recent challenge per identity exists.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL; zero means no expiry.
type Confirmation struct {
	ChatID      int64     `json:"chat_id" dynamodbav:"chat_id"`
	ChallengeID string    `json:"challenge_id" dynamodbav:"challenge_id"`
	Email       string    `json:"email" dynamodbav:"email"`
	CodeHash    string    `json:"-" dynamodbav:"code_hash"`
	Confirmed   bool      `json:"confirmed" dynamodbav:"confirmed"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt   int64     `json:"expires_at" dynamodbav:"expires_at,omitempty"`
}

// Expired reports whether the challenge can no longer be answered at now.
func (c *Confirmation) Expired(now time.Time) bool {
	return c.ExpiresAt > 0 && c.ExpiresAt <= now.Unix()
}
