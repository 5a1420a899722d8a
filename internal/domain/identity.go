package domain

import "time"

// Identity is one chat participant. Email stays nil until a challenge succeeds.
type Identity struct {
	ChatID    int64     `json:"chat_id" dynamodbav:"chat_id"`
	Username  string    `json:"username" dynamodbav:"username"`
	Email     *string   `json:"email,omitempty" dynamodbav:"email,omitempty"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// VerifiedEmail returns the verified address and whether one is set.
func (i *Identity) VerifiedEmail() (string, bool) {
	if i == nil || i.Email == nil || *i.Email == "" {
		return "", false
	}
	return *i.Email, true
}
