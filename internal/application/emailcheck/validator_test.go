package emailcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMX struct{ mock.Mock }

func (m *mockMX) HasMailExchanger(ctx context.Context, host string) bool {
	return m.Called(ctx, host).Bool(0)
}

func TestValidate_MalformedNeverLooksUp(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not-an-email",
		"@gmail.com",
		"user@",
		"user@@gmail.com",
		"a@b@gmail.com",
		"user@gmail",
		"user name@gmail.com",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			mx := &mockMX{}
			_, err := NewValidator(mx).Validate(context.Background(), in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidEmailFormat))
			assert.True(t, errors.Is(err, domain.ErrInvalidEmail))
			mx.AssertNotCalled(t, "HasMailExchanger", mock.Anything, mock.Anything)
		})
	}
}

func TestValidate_NoMailExchanger(t *testing.T) {
	mx := &mockMX{}
	mx.On("HasMailExchanger", mock.Anything, "example.com").Return(false)

	_, err := NewValidator(mx).Validate(context.Background(), "user@example.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnreachableDomain))
	assert.True(t, errors.Is(err, domain.ErrInvalidEmail))
	mx.AssertExpectations(t)
}

func TestValidate_OK_TrimsWhitespace(t *testing.T) {
	mx := &mockMX{}
	mx.On("HasMailExchanger", mock.Anything, "gmail.com").Return(true)

	email, err := NewValidator(mx).Validate(context.Background(), "  user.name+tag@gmail.com \n")

	require.NoError(t, err)
	assert.Equal(t, "user.name+tag@gmail.com", email)
	mx.AssertExpectations(t)
}

func TestValidate_SubdomainLooksUpFullHost(t *testing.T) {
	mx := &mockMX{}
	mx.On("HasMailExchanger", mock.Anything, "mail.example.co.uk").Return(true)

	_, err := NewValidator(mx).Validate(context.Background(), "a@mail.example.co.uk")

	require.NoError(t, err)
	mx.AssertExpectations(t)
}
