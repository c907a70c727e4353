package cache

import "context"

// PathCounts holds the observed request totals for one route.
type PathCounts struct {
	Count    int64
	Statuses map[int]int64
}

// NoteCache keeps operational counters only. Note content is never cached:
// a cached copy of a single-read note would outlive its deletion.
type NoteCache interface {
	IncrementRequestCount(ctx context.Context, path string, status int, delta int64) error
	GetRequestCounts(ctx context.Context) (map[string]PathCounts, error)

	IncrementNoteCount(ctx context.Context, delta int64) error
	GetNoteCount(ctx context.Context) (int64, error)
}
