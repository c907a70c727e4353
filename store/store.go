package store

import (
	"context"
	"errors"
	"time"

	"github.com/notedrop/notedrop/models"
)

type NoteStore interface {
	// CreateNote assigns the internal id and creation timestamp and inserts
	// the record. Inserting a hash that already exists returns the stored
	// note unchanged with inserted false, so callers can tell an actual
	// insert from an idempotent hit.
	CreateNote(ctx context.Context, note models.Note) (created models.Note, inserted bool, err error)
	GetNoteByHash(ctx context.Context, hash string) (models.Note, error)
	// TakeNote atomically deletes the note and returns the removed record.
	// When two callers race on the same hash, exactly one gets the note;
	// the other gets ErrItemNotFound.
	TakeNote(ctx context.Context, hash string) (models.Note, error)
	// GetExpiredNotes returns up to limit notes whose lifetime is at or
	// before asOf. Notes without a lifetime are never returned.
	GetExpiredNotes(ctx context.Context, asOf time.Time, limit int32) ([]models.Note, error)
	// DeleteNotesTransact deletes the given hashes in a single transaction.
	// Either every delete is applied or none are.
	DeleteNotesTransact(ctx context.Context, hashes []string) error
	ListNotes(ctx context.Context, limit int32) ([]models.Note, error)
}

// Custom error types for clarity
var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
)
