package models

import "time"

// Note is the single domain entity. Records are immutable after creation:
// they are only ever inserted and deleted, never updated.
type Note struct {
	Id          string
	Hash        string
	Text        string
	Secret      string
	IsEphemeral bool
	// Lifetime is the absolute UTC expiry instant. nil means the note never
	// expires by time. Mutually exclusive with IsEphemeral.
	Lifetime *time.Time
	Image    string
	Created  int64
}

// NoteView is what a successful retrieval exposes to callers.
// The secret never leaves the service layer.
type NoteView struct {
	Text  string
	Image string
}

// Expired reports whether the note's lifetime has passed at the given
// instant. The comparison is strict: a note is still valid at the exact
// expiry instant.
func (n Note) Expired(now time.Time) bool {
	return n.Lifetime != nil && now.After(*n.Lifetime)
}

func (n Note) View() NoteView {
	return NoteView{Text: n.Text, Image: n.Image}
}
