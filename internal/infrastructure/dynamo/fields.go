package dynamo

// DynamoDB attribute and index names used in keys and expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldChatID         = "chat_id"
	fieldUsername       = "username"
	fieldEmail          = "email"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
	fieldExpiresAt      = "expires_at"
	fieldChallengeID    = "challenge_id"
	fieldConfirmed      = "confirmed"
	fieldOrderID        = "order_id"
	fieldIdempotencyKey = "idempotency_key"

	indexChatCreated = "chat_id-created_at-index"
)
