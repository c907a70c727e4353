package rest_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/notedrop/notedrop/api/rest"
	cachemocks "github.com/notedrop/notedrop/cache/mocks"
	"github.com/notedrop/notedrop/images"
	"github.com/notedrop/notedrop/models"
	mqmocks "github.com/notedrop/notedrop/mq/mocks"
	"github.com/notedrop/notedrop/service"
	"github.com/notedrop/notedrop/store"
	storemocks "github.com/notedrop/notedrop/store/mocks"
)

func setupHandler(t *testing.T) (*rest.Handler, *storemocks.MockStore, string) {
	t.Helper()

	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)
	mockMQ := new(mqmocks.MockMQ)
	mockCache.On("IncrementNoteCount", mock.Anything, mock.Anything).Return(nil).Maybe()

	imageDir := t.TempDir()
	imageStore, err := images.NewStore(imageDir)
	assert.NoError(t, err)

	svc := service.NewService(mockStore, mockCache, mockMQ)
	return rest.NewHandler(svc, imageStore), mockStore, imageDir
}

func multipartForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	assert.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func multipartFormWithImage(t *testing.T, fields map[string]string, imageFilename string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("image", imageFilename)
	assert.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestHandleCreateNote_Created(t *testing.T) {
	handler, mockStore, _ := setupHandler(t)

	hash := service.NoteFingerprint("hello", "s3cr3t!A1")
	mockStore.On("CreateNote", mock.Anything, mock.Anything).
		Return(models.Note{Id: "id1", Hash: hash, Text: "hello"}, true, nil)

	body, contentType := multipartForm(t, map[string]string{
		"text":   "hello",
		"secret": "s3cr3t!A1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/create_note", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.HandleCreateNote(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["response"])
	assert.Equal(t, hash, resp["note_id"])
}

func TestHandleCreateNote_EphemeralLifetimeConflict(t *testing.T) {
	handler, mockStore, _ := setupHandler(t)

	body, contentType := multipartForm(t, map[string]string{
		"text":           "hello",
		"secret":         "s3cr3t!A1",
		"is_ephemeral":   "true",
		"lifetime_hours": "1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/create_note", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.HandleCreateNote(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["response"])
	assert.Equal(t, "Ephemeral notes cannot have a lifetime", resp["error"])

	mockStore.AssertNotCalled(t, "CreateNote", mock.Anything, mock.Anything)
}

func TestHandleCreateNote_RejectedRequest_RemovesUpload(t *testing.T) {
	handler, mockStore, imageDir := setupHandler(t)

	// The conflict is only detected after the upload hit the disk; the
	// rejected request must not leave the file behind.
	body, contentType := multipartFormWithImage(t, map[string]string{
		"text":           "hello",
		"secret":         "s3cr3t!A1",
		"is_ephemeral":   "true",
		"lifetime_hours": "1",
	}, "pic.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/create_note", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.HandleCreateNote(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockStore.AssertNotCalled(t, "CreateNote", mock.Anything, mock.Anything)

	entries, err := os.ReadDir(imageDir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleCreateNote_ExistingHash_RemovesDuplicateUpload(t *testing.T) {
	handler, mockStore, imageDir := setupHandler(t)

	// Re-creating an existing (text, secret) keeps the stored note and its
	// original image; the freshly uploaded duplicate is unreferenced.
	existing := models.Note{Id: "id1", Hash: "h", Text: "hello", Image: "original.png"}
	mockStore.On("CreateNote", mock.Anything, mock.Anything).Return(existing, false, nil)

	body, contentType := multipartFormWithImage(t, map[string]string{
		"text":   "hello",
		"secret": "s3cr3t!A1",
	}, "pic.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/create_note", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.HandleCreateNote(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	entries, err := os.ReadDir(imageDir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleGetNote_Found(t *testing.T) {
	handler, mockStore, _ := setupHandler(t)

	note := models.Note{Id: "id1", Hash: "h", Text: "hello", Secret: "s3cr3t!A1", Image: "pic.png"}
	mockStore.On("GetNoteByHash", mock.Anything, "h").Return(note, nil)

	form := url.Values{"note_id": {"h"}, "note_secret": {"s3cr3t!A1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/get_note", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.HandleGetNote(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["response"])
	assert.Equal(t, "hello", resp["note_final_text"])
	assert.Equal(t, "pic.png", resp["note_image"])
}

func TestHandleGetNote_NotFound(t *testing.T) {
	handler, mockStore, _ := setupHandler(t)

	mockStore.On("GetNoteByHash", mock.Anything, "absent").Return(models.Note{}, store.ErrItemNotFound)

	form := url.Values{"note_id": {"absent"}, "note_secret": {"whatever"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/get_note", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.HandleGetNote(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["response"])
	assert.Equal(t, "Such a note does not exist", resp["note_final_text"])
}

func TestHandleGetNote_WrongMethod(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes/get_note", nil)
	w := httptest.NewRecorder()

	handler.HandleGetNote(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
