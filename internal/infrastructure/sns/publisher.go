package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-storefront-bot/internal/config"
	"github.com/go-storefront-bot/internal/domain"
)

const eventOrderCreated = "order.created"

type publishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// OrderPublisher announces new orders on an SNS topic for downstream fulfilment.
type OrderPublisher struct {
	client   publishAPI
	topicARN string
}

// orderEvent is the JSON message body published for each new order.
type orderEvent struct {
	Event        string    `json:"event"`
	OrderID      string    `json:"order_id"`
	ChatID       int64     `json:"chat_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	ServiceID    int       `json:"service_id"`
	ServiceTitle string    `json:"service_title"`
	Price        string    `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewOrderPublisher(ctx context.Context, cfg *config.Config) (*OrderPublisher, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for SNS: %w", err)
	}
	var clientOpts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &OrderPublisher{client: sns.NewFromConfig(awsCfg, clientOpts...), topicARN: cfg.SNSOrderTopicARN}, nil
}

func (p *OrderPublisher) NotifyNewOrder(ctx context.Context, o domain.Order, email string) error {
	msg, err := json.Marshal(orderEvent{
		Event:        eventOrderCreated,
		OrderID:      o.OrderID,
		ChatID:       o.ChatID,
		Username:     o.Username,
		Email:        email,
		ServiceID:    o.ServiceID,
		ServiceTitle: o.ServiceTitle,
		Price:        o.Price,
		CreatedAt:    o.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(msg)),
		Subject:  aws.String("New order " + o.OrderID),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event":      {DataType: aws.String("String"), StringValue: aws.String(eventOrderCreated)},
			"service_id": {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(o.ServiceID))},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
