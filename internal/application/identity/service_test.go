package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/go-storefront-bot/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIdentityStore struct{ mock.Mock }

func (m *mockIdentityStore) Get(ctx context.Context, chatID int64) (*domain.Identity, error) {
	args := m.Called(ctx, chatID)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentityStore) EnsureExists(ctx context.Context, i *domain.Identity) error {
	return m.Called(ctx, i).Error(0)
}
func (m *mockIdentityStore) SetEmail(ctx context.Context, chatID int64, email string, now time.Time) error {
	return m.Called(ctx, chatID, email, now).Error(0)
}

func TestGet_UnknownChatIsUnverified(t *testing.T) {
	svc := NewService(memory.NewIdentityRepo())
	email, ok, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, email)
}

func TestGet_KnownButUnverified(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewIdentityRepo())
	require.NoError(t, svc.EnsureExists(ctx, 1, "alice"))

	_, ok, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSet_ThenEnsureExistsDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewIdentityRepo())
	require.NoError(t, svc.Set(ctx, 1, "a@gmail.com"))
	require.NoError(t, svc.EnsureExists(ctx, 1, "alice"))

	email, ok, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@gmail.com", email)
}

func TestSet_Overwrites(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewIdentityRepo())
	require.NoError(t, svc.Set(ctx, 1, "a@gmail.com"))
	require.NoError(t, svc.Set(ctx, 1, "b@gmail.com"))

	email, _, _ := svc.Get(ctx, 1)
	assert.Equal(t, "b@gmail.com", email)
}

func TestGet_StoreError(t *testing.T) {
	boom := errors.New("boom")
	repo := &mockIdentityStore{}
	repo.On("Get", mock.Anything, int64(1)).Return(nil, boom)

	_, _, err := NewService(repo).Get(context.Background(), 1)

	assert.True(t, errors.Is(err, boom))
	repo.AssertExpectations(t)
}
