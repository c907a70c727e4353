package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/notedrop/notedrop/models"
	"github.com/notedrop/notedrop/store"
	"github.com/notedrop/notedrop/worker"
)

var (
	// ErrNoteNotFound covers a missing note, a wrong secret and an expired
	// note alike. Collapsing the three causes is deliberate: a distinct
	// answer per cause would let callers probe which notes exist.
	ErrNoteNotFound = errors.New("note does not exist")

	// ErrEphemeralLifetime rejects notes that are both single-read and
	// time-limited.
	ErrEphemeralLifetime = errors.New("ephemeral notes cannot have a lifetime")
)

// NoteFingerprint derives the public lookup key from the note content and
// its secret. Text and secret are concatenated without a separator; the
// digest must stay byte-compatible with already stored hashes.
func NoteFingerprint(text string, secret string) string {
	sum := sha256.Sum256([]byte(text + secret))
	return hex.EncodeToString(sum[:])
}

const (
	secondsInHour   = 3600
	secondsInMinute = 60
)

// CreateNote validates the input, fixes every field of the note at
// construction and persists it. The lifetime is computed from the duration
// components relative to the current time; it is never supplied directly.
func (s *Service) CreateNote(ctx context.Context, text string, secret string, isEphemeral bool, lifetimeHours int, lifetimeMinutes int, lifetimeSeconds int, image string) (models.Note, error) {
	if err := ValidateNoteInput(text, secret, lifetimeHours, lifetimeMinutes, lifetimeSeconds); err != nil {
		return models.Note{}, err
	}

	totalSeconds := lifetimeHours*secondsInHour + lifetimeMinutes*secondsInMinute + lifetimeSeconds
	if isEphemeral && totalSeconds > 0 {
		return models.Note{}, ErrEphemeralLifetime
	}

	var lifetime *time.Time
	if !isEphemeral && totalSeconds > 0 {
		expiresAt := s.Now().UTC().Add(time.Duration(totalSeconds) * time.Second)
		lifetime = &expiresAt
	}

	note := models.Note{
		Hash:        NoteFingerprint(text, secret),
		Text:        text,
		Secret:      secret,
		IsEphemeral: isEphemeral,
		Lifetime:    lifetime,
		Image:       image,
	}

	created, inserted, err := s.Store.CreateNote(ctx, note)
	if err != nil {
		return models.Note{}, fmt.Errorf("create note failed: %w", err)
	}

	// Async side-effect - the stored record is the source of truth, the
	// counter is observational. An idempotent hit on an existing hash is
	// not a new note and must not move the counter.
	if inserted {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Cache.IncrementNoteCount(ctx, 1); err != nil {
				log.Printf("Failed to increment note count: %v", err)
			}
		}()
	}

	return created, nil
}

// GetNote retrieves a note by its public hash. The checks run in order
// against the one snapshot read from the store: existence, secret,
// expiry, ephemerality. Expired notes are removed on access so a note that
// expires between sweep runs is still gone. A successful read of an
// ephemeral note deletes it atomically: of two concurrent readers exactly
// one gets the content, the other gets ErrNoteNotFound.
func (s *Service) GetNote(ctx context.Context, hash string, secret string) (models.NoteView, error) {
	note, err := s.Store.GetNoteByHash(ctx, hash)
	if errors.Is(err, store.ErrItemNotFound) {
		return models.NoteView{}, ErrNoteNotFound
	}
	if err != nil {
		return models.NoteView{}, fmt.Errorf("get note failed: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(note.Secret), []byte(secret)) != 1 {
		return models.NoteView{}, ErrNoteNotFound
	}

	if note.Expired(s.Now().UTC()) {
		// Lazy expiry on access. The conditional delete decides who removed
		// the record: when the sweeper won the race it already ran the
		// side-effects, so a loser here must not decrement the counter
		// again. Either way the caller sees not-found.
		taken, err := s.Store.TakeNote(ctx, hash)
		if err == nil {
			s.noteDeleted(taken)
		} else if !errors.Is(err, store.ErrItemNotFound) {
			log.Printf("Failed to delete expired note %s: %v", note.Id, err)
		}
		return models.NoteView{}, ErrNoteNotFound
	}

	if note.IsEphemeral {
		// Notes are immutable, so the secret verified on the snapshot above
		// still holds for whatever the conditional delete returns.
		taken, err := s.Store.TakeNote(ctx, hash)
		if errors.Is(err, store.ErrItemNotFound) {
			// A concurrent reader took the note first.
			return models.NoteView{}, ErrNoteNotFound
		}
		if err != nil {
			return models.NoteView{}, fmt.Errorf("take note failed: %w", err)
		}
		s.noteDeleted(taken)
		return taken.View(), nil
	}

	return note.View(), nil
}

// noteDeleted runs the side-effects of a removed record: the stored image
// becomes an orphan and is cleaned up through the queue, and the counter
// is adjusted. Callers get their response without waiting on either.
func (s *Service) noteDeleted(note models.Note) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if note.Image != "" {
			msg := worker.ImageCleanupMessage{Image: note.Image}
			if msgBytes, err := json.Marshal(msg); err == nil {
				if err := s.MQ.Send(ctx, string(msgBytes)); err != nil {
					log.Printf("Failed to enqueue image cleanup for note %s: %v", note.Id, err)
				}
			}
		}

		if err := s.Cache.IncrementNoteCount(ctx, -1); err != nil {
			log.Printf("Failed to decrement note count: %v", err)
		}
	}()
}
