package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/notedrop/notedrop/cache"
	"github.com/notedrop/notedrop/mq"
	"github.com/notedrop/notedrop/store"
)

// A sweep run deletes at most one store transaction worth of notes.
// Anything beyond that is picked up on the next run.
const maxSweepBatch = 100

const sweepTimeout = 60 * time.Second

// ExpirySweeper periodically removes notes whose lifetime has passed.
// It runs as a single goroutine, so runs never overlap. Ephemeral notes
// without a lifetime are outside its reach; those are only deleted on read.
type ExpirySweeper struct {
	noteStore         store.NoteStore
	noteCache         cache.NoteCache
	imageCleanupQueue mq.MessageQueue
	interval          time.Duration

	// Now is overridden in tests to pin the sweep cutoff.
	Now func() time.Time
}

func NewExpirySweeper(noteStore store.NoteStore, noteCache cache.NoteCache, imageCleanupQueue mq.MessageQueue, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		noteStore:         noteStore,
		noteCache:         noteCache,
		imageCleanupQueue: imageCleanupQueue,
		interval:          interval,
		Now:               time.Now,
	}
}

func (s *ExpirySweeper) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			deleted, err := s.Sweep(ctx)
			cancel()
			if err != nil {
				// Not fatal: the run is retried on the next tick.
				log.Printf("Expiry sweep failed: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("Expiry sweep deleted %d notes", deleted)
			}

		case <-shutdownCtx.Done():
			return
		}
	}
}

// Sweep deletes the notes expired as of now in a single store transaction
// and returns how many were removed. On any store error nothing is deleted
// and the error is reported; partial deletions are never observable.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	asOf := s.Now().UTC()

	expired, err := s.noteStore.GetExpiredNotes(ctx, asOf, maxSweepBatch)
	if err != nil {
		return 0, fmt.Errorf("query expired notes failed: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	hashes := make([]string, 0, len(expired))
	for _, note := range expired {
		hashes = append(hashes, note.Hash)
	}

	if err := s.noteStore.DeleteNotesTransact(ctx, hashes); err != nil {
		return 0, fmt.Errorf("delete expired notes failed: %w", err)
	}

	// Side-effects only after the transaction committed.
	for _, note := range expired {
		if note.Image == "" {
			continue
		}
		msg := ImageCleanupMessage{Image: note.Image}
		if msgBytes, err := json.Marshal(msg); err == nil {
			if err := s.imageCleanupQueue.Send(ctx, string(msgBytes)); err != nil {
				log.Printf("Failed to enqueue image cleanup for note %s: %v", note.Id, err)
			}
		}
	}

	if err := s.noteCache.IncrementNoteCount(ctx, -int64(len(expired))); err != nil {
		log.Printf("Failed to decrement note count after sweep: %v", err)
	}

	return len(expired), nil
}
