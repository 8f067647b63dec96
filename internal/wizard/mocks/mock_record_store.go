package mocks

import (
	"context"

	"welfareportal/pkg/types"

	"github.com/stretchr/testify/mock"
)

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) CreateApplication(ctx context.Context, application *types.Application) error {
	args := m.Called(ctx, application)
	return args.Error(0)
}
