package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	cachemocks "github.com/notedrop/notedrop/cache/mocks"
	"github.com/notedrop/notedrop/models"
	mqmocks "github.com/notedrop/notedrop/mq/mocks"
	storemocks "github.com/notedrop/notedrop/store/mocks"
	"github.com/notedrop/notedrop/worker"
)

func setupSweeper(t *testing.T) (*worker.ExpirySweeper, *storemocks.MockStore, *cachemocks.MockCache, *mqmocks.MockMQ) {
	t.Helper()

	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)
	mockMQ := new(mqmocks.MockMQ)

	sweeper := worker.NewExpirySweeper(mockStore, mockCache, mockMQ, time.Hour)
	return sweeper, mockStore, mockCache, mockMQ
}

func TestSweep_DeletesExpiredBatch(t *testing.T) {
	sweeper, mockStore, mockCache, mockMQ := setupSweeper(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sweeper.Now = func() time.Time { return now }

	past := now.Add(-time.Hour)
	expired := []models.Note{
		{Id: "1", Hash: "h1", Lifetime: &past},
		{Id: "2", Hash: "h2", Lifetime: &past, Image: "pic.png"},
	}

	mockStore.On("GetExpiredNotes", ctx, now, int32(100)).Return(expired, nil)
	mockStore.On("DeleteNotesTransact", ctx, []string{"h1", "h2"}).Return(nil)
	mockMQ.On("Send", ctx, `{"image":"pic.png"}`).Return(nil).Once()
	mockCache.On("IncrementNoteCount", ctx, int64(-2)).Return(nil)

	deleted, err := sweeper.Sweep(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, deleted)

	mockStore.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockMQ.AssertExpectations(t)
}

func TestSweep_NothingExpired(t *testing.T) {
	sweeper, mockStore, _, _ := setupSweeper(t)
	ctx := context.Background()

	mockStore.On("GetExpiredNotes", ctx, mock.Anything, int32(100)).Return([]models.Note{}, nil)

	deleted, err := sweeper.Sweep(ctx)
	assert.NoError(t, err)
	assert.Zero(t, deleted)

	mockStore.AssertNotCalled(t, "DeleteNotesTransact", mock.Anything, mock.Anything)
}

func TestSweep_QueryFailureAbortsRun(t *testing.T) {
	sweeper, mockStore, _, _ := setupSweeper(t)
	ctx := context.Background()

	mockStore.On("GetExpiredNotes", ctx, mock.Anything, int32(100)).Return(nil, errors.New("connection lost"))

	deleted, err := sweeper.Sweep(ctx)
	assert.Error(t, err)
	assert.Zero(t, deleted)
	mockStore.AssertNotCalled(t, "DeleteNotesTransact", mock.Anything, mock.Anything)
}

func TestSweep_DeleteFailureLeavesNoSideEffects(t *testing.T) {
	sweeper, mockStore, mockCache, mockMQ := setupSweeper(t)
	ctx := context.Background()

	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expired := []models.Note{{Id: "1", Hash: "h1", Lifetime: &past, Image: "pic.png"}}

	mockStore.On("GetExpiredNotes", ctx, mock.Anything, int32(100)).Return(expired, nil)
	mockStore.On("DeleteNotesTransact", ctx, []string{"h1"}).Return(errors.New("transaction cancelled"))

	deleted, err := sweeper.Sweep(ctx)
	assert.Error(t, err)
	assert.Zero(t, deleted)

	// The transaction rolled back, so neither cleanup nor counters move.
	mockMQ.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "IncrementNoteCount", mock.Anything, mock.Anything)
}

func TestRequestCounterBatcher_FlushesAggregates(t *testing.T) {
	mockCache := new(cachemocks.MockCache)
	batcher := worker.NewRequestCounterBatcher(mockCache, 10)

	flushed := make(chan struct{})
	mockCache.On("IncrementRequestCount", mock.Anything, "/api/v1/notes/get_note", 404, int64(3)).
		Return(nil).Once().
		Run(func(args mock.Arguments) { close(flushed) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go batcher.Run(ctx)

	for i := 0; i < 3; i++ {
		batcher.Observe("/api/v1/notes/get_note", 404)
	}

	select {
	case <-flushed:
	case <-time.After(2 * time.Second):
		t.Fatal("aggregated count was not flushed")
	}
	mockCache.AssertExpectations(t)
}
