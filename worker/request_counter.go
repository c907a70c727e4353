package worker

import (
	"context"
	"log"
	"time"

	"github.com/notedrop/notedrop/cache"
)

type RequestObservation struct {
	Path   string
	Status int
}

// RequestCounterBatcher aggregates per-route request counts in memory and
// flushes them to the cache periodically, so a burst of requests costs one
// cache round trip per route instead of one per request.
type RequestCounterBatcher struct {
	UpdateCh           chan RequestObservation
	noteCache          cache.NoteCache
	tickerMilliseconds int
}

func NewRequestCounterBatcher(noteCache cache.NoteCache, tickerMilliseconds int) *RequestCounterBatcher {
	return &RequestCounterBatcher{
		UpdateCh:           make(chan RequestObservation, 1024), // buffer to absorb bursts
		noteCache:          noteCache,
		tickerMilliseconds: tickerMilliseconds,
	}
}

func (b *RequestCounterBatcher) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(time.Duration(b.tickerMilliseconds) * time.Millisecond)
	defer ticker.Stop()

	counts := make(map[RequestObservation]int64)

	flush := func() {
		for key, count := range counts {
			if count == 0 {
				continue
			}
			go func(path string, status int, c int64) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := b.noteCache.IncrementRequestCount(ctx, path, status, c); err != nil {
					log.Printf("Failed to flush request count for %s (%d): %v", path, status, err)
				}
			}(key.Path, key.Status, count)
		}
		counts = make(map[RequestObservation]int64)
	}

	for {
		select {
		case observation := <-b.UpdateCh:
			counts[observation]++

			if len(counts) >= 100 {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-shutdownCtx.Done():
			flush()
			return
		}
	}
}

// Observe records one request without blocking the handler. When the
// buffer is full the observation is dropped; counts are best-effort.
func (b *RequestCounterBatcher) Observe(path string, status int) {
	select {
	case b.UpdateCh <- RequestObservation{Path: path, Status: status}:
	default:
	}
}
