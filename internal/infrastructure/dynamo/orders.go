package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-storefront-bot/internal/domain"
)

// orderKeyTTL bounds how long a trigger id is remembered for dedupe.
const orderKeyTTL = 7 * 24 * time.Hour

// orderKey maps an idempotency key to the order it produced.
type orderKey struct {
	IdempotencyKey string `dynamodbav:"idempotency_key"`
	OrderID        string `dynamodbav:"order_id"`
	ExpiresAt      int64  `dynamodbav:"expires_at"`
}

type orderAPI interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// OrderRepo stores immutable orders.
// orders PK: order_id, GSI chat_id-created_at-index. order_keys PK: idempotency_key.
type OrderRepo struct {
	client        orderAPI
	tableName     string
	keysTableName string
}

func NewOrderRepo(client orderAPI, tableName, keysTableName string) *OrderRepo {
	return &OrderRepo{client: client, tableName: tableName, keysTableName: keysTableName}
}

// Create writes the order and its idempotency key in one transaction.
// A key that was already used yields domain.ErrConflict and nothing is written.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	keyItem, err := attributevalue.MarshalMap(orderKey{
		IdempotencyKey: o.IdempotencyKey,
		OrderID:        o.OrderID,
		ExpiresAt:      o.CreatedAt.Add(orderKeyTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal order key: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.keysTableName),
				Item:                     keyItem,
				ConditionExpression:      aws.String("attribute_not_exists(#k)"),
				ExpressionAttributeNames: map[string]string{"#k": fieldIdempotencyKey},
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": fieldOrderID},
			}},
		},
	})
	if isTxConditionFailed(err) {
		return fmt.Errorf("order key %q already used: %w", o.IdempotencyKey, domain.ErrConflict)
	}
	return err
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldOrderID, orderID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("order not found: %w", domain.ErrNotFound)
	}
	var o domain.Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.keysTableName),
		Key:            strKey(fieldIdempotencyKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("order key not found: %w", domain.ErrNotFound)
	}
	var k orderKey
	if err := attributevalue.UnmarshalMap(out.Item, &k); err != nil {
		return nil, err
	}
	return r.Get(ctx, k.OrderID)
}

// ListByChat returns a chat's orders, newest first, across every result page.
func (r *OrderRepo) ListByChat(ctx context.Context, chatID int64) ([]domain.Order, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(indexChatCreated),
		KeyConditionExpression:   aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{"#c": fieldChatID},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": numKey(fieldChatID, chatID)[fieldChatID],
		},
		ScanIndexForward: aws.Bool(false),
	})
	var orders []domain.Order
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		orders = append(orders, page...)
	}
	return orders, nil
}
