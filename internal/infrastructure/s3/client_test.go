package s3infra

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-storefront-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjectAPI struct{ mock.Mock }

func (m *mockObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, *in.Bucket, *in.Key)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}
func (m *mockObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, *in.Bucket, *in.Key, *in.ContentType)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestDownload(t *testing.T) {
	api := &mockObjectAPI{}
	api.On("GetObject", mock.Anything, "bucket", "catalog.json").
		Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("{}"))}, nil)

	body, err := NewStore(api, "bucket").Download(context.Background(), "catalog.json")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "{}", string(data))
}

func TestDownload_MissingKey(t *testing.T) {
	api := &mockObjectAPI{}
	api.On("GetObject", mock.Anything, "bucket", "catalog.json").Return(nil, &types.NoSuchKey{})

	_, err := NewStore(api, "bucket").Download(context.Background(), "catalog.json")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpload(t *testing.T) {
	api := &mockObjectAPI{}
	api.On("PutObject", mock.Anything, "bucket", "catalog.json", "application/json").Return(&s3.PutObjectOutput{}, nil)

	err := NewStore(api, "bucket").Upload(context.Background(), "catalog.json", strings.NewReader("{}"), "application/json")
	require.NoError(t, err)
	api.AssertExpectations(t)
}
