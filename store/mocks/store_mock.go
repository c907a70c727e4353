package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/notedrop/notedrop/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateNote(ctx context.Context, note models.Note) (models.Note, bool, error) {
	args := m.Called(ctx, note)
	return args.Get(0).(models.Note), args.Bool(1), args.Error(2)
}

func (m *MockStore) GetNoteByHash(ctx context.Context, hash string) (models.Note, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *MockStore) TakeNote(ctx context.Context, hash string) (models.Note, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *MockStore) GetExpiredNotes(ctx context.Context, asOf time.Time, limit int32) ([]models.Note, error) {
	args := m.Called(ctx, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Note), args.Error(1)
}

func (m *MockStore) DeleteNotesTransact(ctx context.Context, hashes []string) error {
	args := m.Called(ctx, hashes)
	return args.Error(0)
}

func (m *MockStore) ListNotes(ctx context.Context, limit int32) ([]models.Note, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Note), args.Error(1)
}
