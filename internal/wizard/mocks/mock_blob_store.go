package mocks

import (
	"context"
	"io"

	"welfareportal/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, key string, body io.Reader, opts storage.UploadOptions) (string, error) {
	args := m.Called(ctx, key, body, opts)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, storage.UploadOptions) string); ok {
		return f(ctx, key, body, opts), args.Error(1)
	}
	return args.String(0), args.Error(1)
}
