package dynamo

import (
	"time"

	"github.com/notedrop/notedrop/models"
)

// Single-table layout: PK = "NOTE#<hash>", SK = "NOTE".
// ExpiryBucket/Lifetime are only written for notes with a lifetime so the
// expiry GSI stays sparse: ephemeral and never-expiring notes are invisible
// to the sweep.
type dynamoNote struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Id           string `dynamodbav:"Id"`
	NoteText     string `dynamodbav:"NoteText"`
	Secret       string `dynamodbav:"Secret"`
	IsEphemeral  bool   `dynamodbav:"IsEphemeral"`
	Lifetime     int64  `dynamodbav:"Lifetime,omitempty"`
	ExpiryBucket string `dynamodbav:"ExpiryBucket,omitempty"`
	NoteBucket   string `dynamodbav:"NoteBucket"`
	Image        string `dynamodbav:"Image"`
	Created      int64  `dynamodbav:"Created"`
}

const (
	noteSortKey  = "NOTE"
	expiryBucket = "EXPIRES"
	noteBucket   = "NOTES"
)

func notePK(hash string) string {
	return "NOTE#" + hash
}

// Map domain Note -> Dynamo
func noteToDynamo(n models.Note) dynamoNote {
	dn := dynamoNote{
		PK:          notePK(n.Hash),
		SK:          noteSortKey,
		Id:          n.Id,
		NoteText:    n.Text,
		Secret:      n.Secret,
		IsEphemeral: n.IsEphemeral,
		NoteBucket:  noteBucket,
		Image:       n.Image,
		Created:     n.Created,
	}
	if n.Lifetime != nil {
		dn.Lifetime = n.Lifetime.UnixMilli()
		dn.ExpiryBucket = expiryBucket
	}
	return dn
}

// Map Dynamo -> domain Note
func noteFromDynamo(dn dynamoNote) models.Note {
	n := models.Note{
		Id:          dn.Id,
		Hash:        dn.PK[len("NOTE#"):],
		Text:        dn.NoteText,
		Secret:      dn.Secret,
		IsEphemeral: dn.IsEphemeral,
		Image:       dn.Image,
		Created:     dn.Created,
	}
	if dn.Lifetime != 0 {
		t := time.UnixMilli(dn.Lifetime).UTC()
		n.Lifetime = &t
	}
	return n
}
