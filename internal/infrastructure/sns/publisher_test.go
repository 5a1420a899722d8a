package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-storefront-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublishAPI struct{ mock.Mock }

func (m *mockPublishAPI) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestNotifyNewOrder_PublishesEvent(t *testing.T) {
	api := &mockPublishAPI{}
	var captured *sns.PublishInput
	api.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*sns.PublishInput) }).
		Return(&sns.PublishOutput{MessageId: aws.String("m1")}, nil)

	p := &OrderPublisher{client: api, topicARN: "arn:aws:sns:us-east-1:000000000000:orders"}
	o := domain.Order{
		OrderID: "01HX", ChatID: 7, Username: "alice", ServiceID: 4,
		ServiceTitle: "Steam", Price: "300", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.NotifyNewOrder(context.Background(), o, "a@gmail.com"))

	require.NotNil(t, captured)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:orders", *captured.TopicArn)
	var ev orderEvent
	require.NoError(t, json.Unmarshal([]byte(*captured.Message), &ev))
	assert.Equal(t, eventOrderCreated, ev.Event)
	assert.Equal(t, "a@gmail.com", ev.Email)
	assert.Equal(t, 4, ev.ServiceID)
	assert.Equal(t, "4", *captured.MessageAttributes["service_id"].StringValue)
}

func TestNotifyNewOrder_Error(t *testing.T) {
	api := &mockPublishAPI{}
	api.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	p := &OrderPublisher{client: api, topicARN: "arn"}
	err := p.NotifyNewOrder(context.Background(), domain.Order{OrderID: "x"}, "a@gmail.com")
	assert.ErrorContains(t, err, "throttled")
}
