package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockObjectAPI struct {
	PutObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.PutObjectFunc(ctx, params, optFns...)
}

func TestS3Storage_Upload(t *testing.T) {
	var got *s3.PutObjectInput
	api := &mockObjectAPI{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			got = params
			return &s3.PutObjectOutput{}, nil
		},
	}
	s := &S3Storage{client: api, bucket: "docs"}

	key, err := s.Upload(context.Background(), "u1/s1/1-0_id.pdf", strings.NewReader("%PDF"), UploadOptions{
		ContentType: "application/pdf",
		Size:        4,
		Metadata:    map[string]string{"original-filename": "id.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1/s1/1-0_id.pdf", key)

	require.NotNil(t, got)
	assert.Equal(t, "docs", aws.ToString(got.Bucket))
	assert.Equal(t, "u1/s1/1-0_id.pdf", aws.ToString(got.Key))
	assert.Equal(t, "application/pdf", aws.ToString(got.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(got.ContentLength))
	assert.Equal(t, "id.pdf", got.Metadata["original-filename"])

	body, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(body))
}

func TestS3Storage_UploadError(t *testing.T) {
	api := &mockObjectAPI{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}
	s := &S3Storage{client: api, bucket: "docs"}

	key, err := s.Upload(context.Background(), "k", strings.NewReader("x"), UploadOptions{Size: 1})
	assert.Empty(t, key)
	assert.ErrorContains(t, err, "access denied")
}
