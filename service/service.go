package service

import (
	"time"

	"github.com/notedrop/notedrop/cache"
	"github.com/notedrop/notedrop/mq"
	"github.com/notedrop/notedrop/store"
)

type Service struct {
	Store store.NoteStore
	Cache cache.NoteCache
	MQ    mq.MessageQueue

	// Now supplies the current time for expiry decisions. Overridden in
	// tests to pin the clock; everywhere else it is time.Now.
	Now func() time.Time
}

func NewService(
	noteStore store.NoteStore,
	noteCache cache.NoteCache,
	imageCleanupQueue mq.MessageQueue,
) *Service {
	return &Service{
		Store: noteStore,
		Cache: noteCache,
		MQ:    imageCleanupQueue,
		Now:   time.Now,
	}
}
