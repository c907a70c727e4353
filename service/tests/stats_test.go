package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/notedrop/notedrop/cache"
	"github.com/notedrop/notedrop/models"
)

func TestGetStats(t *testing.T) {
	svc, _, mockCache, _ := setupService(t)
	ctx := context.Background()

	mockCache.On("GetNoteCount", ctx).Return(int64(7), nil)
	mockCache.On("GetRequestCounts", ctx).Return(map[string]cache.PathCounts{
		"/api/v1/notes/get_note": {Count: 12, Statuses: map[int]int64{200: 4, 404: 8}},
	}, nil)

	stats, err := svc.GetStats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), stats.NoteCount)
	assert.Equal(t, int64(8), stats.Requests["/api/v1/notes/get_note"].Statuses[404])
}

func TestListNotes_Paging(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	stored := []models.Note{
		{Id: "1", Text: "newest", Secret: "s1"},
		{Id: "2", Text: "middle", Secret: "s2"},
		{Id: "3", Text: "oldest", Secret: "s3"},
	}

	// Page 2 with 2 per page: the store is asked for 4 but only has 3.
	mockStore.On("ListNotes", ctx, int32(4)).Return(stored, nil)

	views, err := svc.ListNotes(ctx, 2, 2)
	assert.NoError(t, err)
	assert.Len(t, views, 1)
	assert.Equal(t, "oldest", views[0].Text)
}

func TestListNotes_PageBeyondDepthLimit(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	// A page large enough to overflow int32 when multiplied by per_page
	// must not reach the store as a negative (unbounded) limit.
	views, err := svc.ListNotes(ctx, 21474837, 100)
	assert.NoError(t, err)
	assert.Empty(t, views)
	mockStore.AssertNotCalled(t, "ListNotes", mock.Anything, mock.Anything)
}

func TestListNotes_DeepestPage_LimitStaysPositive(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("ListNotes", ctx, mock.MatchedBy(func(limit int32) bool {
		return limit > 0
	})).Return([]models.Note{}, nil)

	views, err := svc.ListNotes(ctx, 100, 100)
	assert.NoError(t, err)
	assert.Empty(t, views)
	mockStore.AssertExpectations(t)
}

func TestListNotes_PageBeyondEnd(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("ListNotes", ctx, int32(30)).Return([]models.Note{{Id: "1", Text: "only"}}, nil)

	views, err := svc.ListNotes(ctx, 10, 3)
	assert.NoError(t, err)
	assert.Empty(t, views)
}
