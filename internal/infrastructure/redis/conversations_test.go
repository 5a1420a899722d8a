package redis

import (
	"testing"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseState(t *testing.T) {
	assert.Equal(t, domain.StateAwaitingEmail, parseState("awaiting_email"))
	assert.Equal(t, domain.StateAwaitingCode, parseState("awaiting_code"))
	assert.Equal(t, domain.StateIdle, parseState("idle"))
	assert.Equal(t, domain.StateIdle, parseState("garbage"))
}

func TestConversationKey(t *testing.T) {
	assert.Equal(t, "storefront:conv:-100123", conversationKey(-100123))
}

func TestUpdateKey(t *testing.T) {
	assert.Equal(t, "storefront:update:815", updateKey(815))
}
