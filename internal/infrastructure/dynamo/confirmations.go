package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-storefront-bot/internal/domain"
)

// ConfirmationRepo manages pending e-mail challenges.
// PK: chat_id, so a PutItem replaces any prior challenge of the same chat.
type ConfirmationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewConfirmationRepo(client *dynamodb.Client, tableName string) *ConfirmationRepo {
	return &ConfirmationRepo{client: client, tableName: tableName}
}

func (r *ConfirmationRepo) Replace(ctx context.Context, c *domain.Confirmation) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ConfirmationRepo) Get(ctx context.Context, chatID int64) (*domain.Confirmation, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            numKey(fieldChatID, chatID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("confirmation not found: %w", domain.ErrNotFound)
	}
	var c domain.Confirmation
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkConfirmed flips confirmed to true only if challengeID is still the active,
// unconfirmed challenge. Otherwise it returns domain.ErrConflict.
func (r *ConfirmationRepo) MarkConfirmed(ctx context.Context, chatID int64, challengeID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldConfirmed: true})
	if err != nil {
		return err
	}
	ue.Names["#cid"] = fieldChallengeID
	ue.Names["#conf"] = fieldConfirmed
	ue.Values[":cid"] = &types.AttributeValueMemberS{Value: challengeID}
	ue.Values[":f"] = &types.AttributeValueMemberBOOL{Value: false}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       numKey(fieldChatID, chatID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#cid = :cid AND #conf = :f"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("challenge superseded or already confirmed: %w", domain.ErrConflict)
	}
	return err
}
