package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-storefront-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderAPI struct{ mock.Mock }

func (m *mockOrderAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockOrderAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockOrderAPI) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

func orderItem(t *testing.T, id string) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(domain.Order{OrderID: id, ChatID: 7, CreatedAt: time.Unix(0, 0).UTC()})
	require.NoError(t, err)
	return item
}

func TestOrderRepo_ListByChatFollowsPages(t *testing.T) {
	api := &mockOrderAPI{}
	cursor := map[string]types.AttributeValue{fieldOrderID: &types.AttributeValueMemberS{Value: "o2"}}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{orderItem(t, "o3"), orderItem(t, "o2")},
		LastEvaluatedKey: cursor,
	}, nil).Once()
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{orderItem(t, "o1")},
	}, nil).Once()

	orders, err := NewOrderRepo(api, "orders", "order_keys").ListByChat(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, []string{"o3", "o2", "o1"}, []string{orders[0].OrderID, orders[1].OrderID, orders[2].OrderID})
	api.AssertExpectations(t)
}

func TestOrderRepo_GetByIdempotencyKeyReadsConsistently(t *testing.T) {
	api := &mockOrderAPI{}
	keyItem, err := attributevalue.MarshalMap(orderKey{IdempotencyKey: "cb-1", OrderID: "o1"})
	require.NoError(t, err)
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return aws.ToString(in.TableName) == "order_keys" && aws.ToBool(in.ConsistentRead)
	})).Return(&dynamodb.GetItemOutput{Item: keyItem}, nil).Once()
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return aws.ToString(in.TableName) == "orders" && aws.ToBool(in.ConsistentRead)
	})).Return(&dynamodb.GetItemOutput{Item: orderItem(t, "o1")}, nil).Once()

	o, err := NewOrderRepo(api, "orders", "order_keys").GetByIdempotencyKey(context.Background(), "cb-1")

	require.NoError(t, err)
	assert.Equal(t, "o1", o.OrderID)
	api.AssertExpectations(t)
}
