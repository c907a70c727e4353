package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/notedrop/notedrop/cache"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) IncrementRequestCount(ctx context.Context, path string, status int, delta int64) error {
	args := m.Called(ctx, path, status, delta)
	return args.Error(0)
}

func (m *MockCache) GetRequestCounts(ctx context.Context) (map[string]cache.PathCounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]cache.PathCounts), args.Error(1)
}

func (m *MockCache) IncrementNoteCount(ctx context.Context, delta int64) error {
	args := m.Called(ctx, delta)
	return args.Error(0)
}

func (m *MockCache) GetNoteCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
