package domain

// ConversationState is where an identity stands in the e-mail verification flow.
type ConversationState string

const (
	StateIdle          ConversationState = "idle"
	StateAwaitingEmail ConversationState = "awaiting_email"
	StateAwaitingCode  ConversationState = "awaiting_code"
)
