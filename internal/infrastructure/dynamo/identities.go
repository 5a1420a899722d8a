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

// IdentityRepo provides typed DynamoDB operations for the identities table.
// PK: chat_id
type IdentityRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewIdentityRepo(client *dynamodb.Client, tableName string) *IdentityRepo {
	return &IdentityRepo{client: client, tableName: tableName}
}

func (r *IdentityRepo) Get(ctx context.Context, chatID int64) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            numKey(fieldChatID, chatID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	var i domain.Identity
	if err := attributevalue.UnmarshalMap(out.Item, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// EnsureExists inserts the identity unless one with the same chat_id is stored.
// An existing record, and its email, is left untouched.
func (r *IdentityRepo) EnsureExists(ctx context.Context, i *domain.Identity) error {
	item, err := attributevalue.MarshalMap(i)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": fieldChatID,
		},
	})
	if isConditionFailed(err) {
		return nil
	}
	return err
}

// SetEmail upserts the verified email, creating a bare record when the identity is unknown.
func (r *IdentityRepo) SetEmail(ctx context.Context, chatID int64, email string, now time.Time) error {
	ts, err := attributevalue.Marshal(now.UTC())
	if err != nil {
		return fmt.Errorf("marshal timestamp: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       numKey(fieldChatID, chatID),
		UpdateExpression: aws.String(
			"SET #email = :email, #updated = :now, #created = if_not_exists(#created, :now), #username = if_not_exists(#username, :empty)",
		),
		ExpressionAttributeNames: map[string]string{
			"#email":    fieldEmail,
			"#updated":  fieldUpdatedAt,
			"#created":  fieldCreatedAt,
			"#username": fieldUsername,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
			":now":   ts,
			":empty": &types.AttributeValueMemberS{Value: ""},
		},
	})
	return err
}
