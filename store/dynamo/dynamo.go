package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gofrs/uuid/v5"

	"github.com/notedrop/notedrop/models"
)

type DynamoNoteStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoNoteStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoNoteStore, error) {
	client, err := newDynamoDBClient(context.Background(), devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoNoteStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoNoteStore) CreateNote(ctx context.Context, note models.Note) (models.Note, bool, error) {
	noteId, err := uuid.NewV4()
	if err != nil {
		return models.Note{}, false, err
	}
	note.Id = noteId.String()
	note.Created = time.Now().Unix()

	// Identical (text, secret) pairs produce the same hash, so the
	// conditional put can lose against an existing record. ensureItem then
	// returns the stored note, which makes re-creating the same note
	// idempotent instead of an error. inserted is false on that path so
	// callers don't count the note twice.
	dn, inserted, err := ensureItem(dynamoStore, ctx, noteToDynamo(note))
	if err != nil {
		return models.Note{}, false, err
	}

	return noteFromDynamo(dn), inserted, nil
}

func (dynamoStore *DynamoNoteStore) GetNoteByHash(ctx context.Context, hash string) (models.Note, error) {
	dn, err := getItem[dynamoNote](dynamoStore, ctx, notePK(hash), noteSortKey, false)
	if err != nil {
		return models.Note{}, err
	}

	return noteFromDynamo(dn), nil
}

// TakeNote is the compare-and-delete primitive behind single-read notes.
// The conditional delete guarantees that of two concurrent takers exactly
// one receives the record; the other observes store.ErrItemNotFound.
func (dynamoStore *DynamoNoteStore) TakeNote(ctx context.Context, hash string) (models.Note, error) {
	dn, err := deleteItemReturning[dynamoNote](dynamoStore, ctx, notePK(hash), noteSortKey)
	if err != nil {
		return models.Note{}, err
	}

	return noteFromDynamo(dn), nil
}

func (dynamoStore *DynamoNoteStore) GetExpiredNotes(ctx context.Context, asOf time.Time, limit int32) ([]models.Note, error) {
	dynamoNotes, err := queryGSIUpTo[dynamoNote](dynamoStore, ctx, "GSI_Expiry", "ExpiryBucket", expiryBucket, "Lifetime", asOf.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}

	notes := make([]models.Note, 0, len(dynamoNotes))
	for _, dn := range dynamoNotes {
		notes = append(notes, noteFromDynamo(dn))
	}

	return notes, nil
}

func (dynamoStore *DynamoNoteStore) DeleteNotesTransact(ctx context.Context, hashes []string) error {
	keys := make([]itemKey, 0, len(hashes))
	for _, hash := range hashes {
		keys = append(keys, itemKey{PK: notePK(hash), SK: noteSortKey})
	}
	return transactDeleteItems(dynamoStore, ctx, keys)
}

func (dynamoStore *DynamoNoteStore) ListNotes(ctx context.Context, limit int32) ([]models.Note, error) {
	// Newest first (ScanIndexForward: false on the Created sort key)
	dynamoNotes, err := queryGSINewest[dynamoNote](dynamoStore, ctx, "GSI_Notes", "NoteBucket", noteBucket, limit)
	if err != nil {
		return nil, err
	}

	notes := make([]models.Note, 0, len(dynamoNotes))
	for _, dn := range dynamoNotes {
		notes = append(notes, noteFromDynamo(dn))
	}

	return notes, nil
}
