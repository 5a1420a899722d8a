package order

import (
	"context"
	"errors"
	"testing"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/go-storefront-bot/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) Get(ctx context.Context, chatID int64) (string, bool, error) {
	args := m.Called(ctx, chatID)
	return args.String(0), args.Bool(1), args.Error(2)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Get(ctx context.Context, serviceID int) (*domain.Service, error) {
	args := m.Called(ctx, serviceID)
	if s, _ := args.Get(0).(*domain.Service); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyNewOrder(ctx context.Context, o domain.Order, email string) error {
	return m.Called(ctx, o, email).Error(0)
}

// --- helpers ---

var steam = &domain.Service{ID: 4, Title: "Steam", Price: "300", Description: "desc"}

func req(serviceID int, key string) domain.PlaceOrderRequest {
	return domain.PlaceOrderRequest{ChatID: 7, Username: "alice", ServiceID: serviceID, IdempotencyKey: key}
}

func newService(dir *mockDirectory, cat *mockCatalog, n *mockNotifier, repo orderStore) Service {
	return NewService(ServiceDeps{Repo: repo, Directory: dir, Catalog: cat, Notifier: n})
}

// --- tests ---

func TestPlace_VerifiedKnownService(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("a@gmail.com", true, nil)
	cat := &mockCatalog{}
	cat.On("Get", mock.Anything, 4).Return(steam, nil)
	n := &mockNotifier{}
	n.On("NotifyNewOrder", mock.Anything, mock.AnythingOfType("domain.Order"), "a@gmail.com").Return(nil)
	repo := memory.NewOrderRepo()

	o, err := newService(dir, cat, n, repo).Place(context.Background(), req(4, "cb-1"))

	require.NoError(t, err)
	assert.NotEmpty(t, o.OrderID)
	assert.Equal(t, int64(7), o.ChatID)
	assert.Equal(t, "alice", o.Username)
	assert.Equal(t, 4, o.ServiceID)
	assert.Equal(t, "Steam", o.ServiceTitle)
	assert.Equal(t, "300", o.Price)
	assert.Equal(t, "a@gmail.com", o.Email)
	assert.False(t, o.CreatedAt.IsZero())
	n.AssertNumberOfCalls(t, "NotifyNewOrder", 1)

	stored, err := repo.ListByChat(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, o.OrderID, stored[0].OrderID)
}

func TestPlace_SnapshotIsACopy(t *testing.T) {
	svc := *steam
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("a@gmail.com", true, nil)
	cat := &mockCatalog{}
	cat.On("Get", mock.Anything, 4).Return(&svc, nil)
	n := &mockNotifier{}
	n.On("NotifyNewOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	o, err := newService(dir, cat, n, memory.NewOrderRepo()).Place(context.Background(), req(4, "cb-1"))
	require.NoError(t, err)

	svc.Title = "renamed"
	svc.Price = "1"
	assert.Equal(t, "Steam", o.ServiceTitle)
	assert.Equal(t, "300", o.Price)
}

func TestPlace_UnverifiedKnownService(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("", false, nil)
	cat := &mockCatalog{}
	n := &mockNotifier{}
	repo := memory.NewOrderRepo()

	_, err := newService(dir, cat, n, repo).Place(context.Background(), req(4, "cb-1"))

	assert.True(t, errors.Is(err, domain.ErrNotVerified))
	n.AssertNotCalled(t, "NotifyNewOrder", mock.Anything, mock.Anything, mock.Anything)
	orders, _ := repo.ListByChat(context.Background(), 7)
	assert.Empty(t, orders)
}

func TestPlace_UnverifiedUnknownService_NotVerifiedWins(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("", false, nil)
	cat := &mockCatalog{}
	cat.On("Get", mock.Anything, 999).Return(nil, domain.ErrNotFound).Maybe()

	_, err := newService(dir, cat, &mockNotifier{}, memory.NewOrderRepo()).Place(context.Background(), req(999, "cb-1"))

	assert.True(t, errors.Is(err, domain.ErrNotVerified))
	assert.False(t, errors.Is(err, domain.ErrUnknownService))
}

func TestPlace_VerifiedUnknownService(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("a@gmail.com", true, nil)
	cat := &mockCatalog{}
	cat.On("Get", mock.Anything, 999).Return(nil, domain.ErrNotFound)
	n := &mockNotifier{}

	_, err := newService(dir, cat, n, memory.NewOrderRepo()).Place(context.Background(), req(999, "cb-1"))

	assert.True(t, errors.Is(err, domain.ErrUnknownService))
	n.AssertNotCalled(t, "NotifyNewOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlace_ReplayedTriggerNotifiesOnce(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("a@gmail.com", true, nil)
	cat := &mockCatalog{}
	cat.On("Get", mock.Anything, 4).Return(steam, nil)
	n := &mockNotifier{}
	n.On("NotifyNewOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newService(dir, cat, n, memory.NewOrderRepo())

	first, err := svc.Place(context.Background(), req(4, "cb-1"))
	require.NoError(t, err)
	second, err := svc.Place(context.Background(), req(4, "cb-1"))
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	n.AssertNumberOfCalls(t, "NotifyNewOrder", 1)
}

func TestPlace_DistinctTriggersCreateDistinctOrders(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("a@gmail.com", true, nil)
	cat := &mockCatalog{}
	cat.On("Get", mock.Anything, 4).Return(steam, nil)
	n := &mockNotifier{}
	n.On("NotifyNewOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newService(dir, cat, n, memory.NewOrderRepo())

	a, err := svc.Place(context.Background(), req(4, "cb-1"))
	require.NoError(t, err)
	b, err := svc.Place(context.Background(), req(4, "cb-2"))
	require.NoError(t, err)

	assert.NotEqual(t, a.OrderID, b.OrderID)
	n.AssertNumberOfCalls(t, "NotifyNewOrder", 2)
}

func TestPlace_NotifierFailureKeepsOrder(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("a@gmail.com", true, nil)
	cat := &mockCatalog{}
	cat.On("Get", mock.Anything, 4).Return(steam, nil)
	n := &mockNotifier{}
	n.On("NotifyNewOrder", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("telegram down"))
	repo := memory.NewOrderRepo()

	o, err := newService(dir, cat, n, repo).Place(context.Background(), req(4, "cb-1"))

	require.NoError(t, err)
	stored, _ := repo.GetByIdempotencyKey(context.Background(), "cb-1")
	assert.Equal(t, o.OrderID, stored.OrderID)
}

func TestPlace_InvalidRequest(t *testing.T) {
	dir := &mockDirectory{}
	_, err := newService(dir, &mockCatalog{}, &mockNotifier{}, memory.NewOrderRepo()).
		Place(context.Background(), domain.PlaceOrderRequest{ChatID: 7, Username: "alice", ServiceID: 4})

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	dir.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestPlace_DirectoryError(t *testing.T) {
	boom := errors.New("boom")
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("", false, boom)

	_, err := newService(dir, &mockCatalog{}, &mockNotifier{}, memory.NewOrderRepo()).
		Place(context.Background(), req(4, "cb-1"))

	assert.True(t, errors.Is(err, boom))
}

func TestPlace_UnverifiedNonPositiveServiceID_NotVerifiedWins(t *testing.T) {
	for _, serviceID := range []int{0, -3} {
		dir := &mockDirectory{}
		dir.On("Get", mock.Anything, int64(7)).Return("", false, nil)

		_, err := newService(dir, &mockCatalog{}, &mockNotifier{}, memory.NewOrderRepo()).
			Place(context.Background(), req(serviceID, "cb-1"))

		assert.True(t, errors.Is(err, domain.ErrNotVerified), "service id %d", serviceID)
		assert.False(t, errors.Is(err, domain.ErrBadRequest), "service id %d", serviceID)
	}
}

func TestPlace_VerifiedZeroServiceID_UnknownService(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Get", mock.Anything, int64(7)).Return("a@gmail.com", true, nil)
	cat := &mockCatalog{}
	cat.On("Get", mock.Anything, 0).Return(nil, domain.ErrNotFound)

	_, err := newService(dir, cat, &mockNotifier{}, memory.NewOrderRepo()).
		Place(context.Background(), req(0, "cb-1"))

	assert.True(t, errors.Is(err, domain.ErrUnknownService))
}
