package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/notedrop/notedrop/images"
	"github.com/notedrop/notedrop/service"
)

type Handler struct {
	Service *service.Service
	Images  *images.Store
}

func NewHandler(svc *service.Service, imageStore *images.Store) *Handler {
	return &Handler{Service: svc, Images: imageStore}
}

// Large enough for the text fields plus one image; the rest spills to disk.
const maxUploadMemoryBytes = 10 << 20

const notFoundText = "Such a note does not exist"

type createNoteResponse struct {
	Response string `json:"response"`
	NoteId   string `json:"note_id"`
}

type errorResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (h *Handler) HandleCreateNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemoryBytes); err != nil {
		h.sendJSON(w, http.StatusBadRequest, errorResponse{Response: "error", Error: "invalid form data"})
		return
	}

	text := r.FormValue("text")
	secret := r.FormValue("secret")

	lifetimeHours, ok1 := formInt(r, "lifetime_hours")
	lifetimeMinutes, ok2 := formInt(r, "lifetime_minutes")
	lifetimeSeconds, ok3 := formInt(r, "lifetime_seconds")
	isEphemeral, ok4 := formBool(r, "is_ephemeral")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		h.sendJSON(w, http.StatusBadRequest, errorResponse{Response: "error", Error: "invalid form data"})
		return
	}

	imageName, err := h.saveUploadedImage(r)
	if err != nil {
		log.Printf("Image upload failed: %v", err)
		h.sendJSON(w, http.StatusBadRequest, errorResponse{Response: "error", Error: "invalid image upload"})
		return
	}

	note, err := h.Service.CreateNote(r.Context(), text, secret, isEphemeral, lifetimeHours, lifetimeMinutes, lifetimeSeconds, imageName)
	if err != nil {
		// The upload is already on disk but no note references it, and the
		// cleanup queue only learns about images attached to stored notes.
		h.discardImage(imageName)
	}
	if errors.Is(err, service.ErrEphemeralLifetime) {
		h.sendJSON(w, http.StatusBadRequest, errorResponse{Response: "error", Error: "Ephemeral notes cannot have a lifetime"})
		return
	}
	if service.IsValidationError(err) {
		h.sendJSON(w, http.StatusBadRequest, errorResponse{Response: "error", Error: err.Error()})
		return
	}
	if err != nil {
		log.Printf("Create note failed: %v", err)
		http.Error(w, "failed to create note", http.StatusInternalServerError)
		return
	}

	if imageName != "" && note.Image != imageName {
		// The hash already existed; the stored note keeps its original
		// image and this upload is unreferenced.
		h.discardImage(imageName)
	}

	h.sendJSON(w, http.StatusCreated, createNoteResponse{Response: "ok", NoteId: note.Hash})
}

type getNoteResponse struct {
	Response      string `json:"response"`
	NoteFinalText string `json:"note_final_text"`
	NoteImage     string `json:"note_image"`
}

type noteNotFoundResponse struct {
	Response      string `json:"response"`
	NoteFinalText string `json:"note_final_text"`
}

func (h *Handler) HandleGetNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	noteId := r.FormValue("note_id")
	noteSecret := r.FormValue("note_secret")

	view, err := h.Service.GetNote(r.Context(), noteId, noteSecret)
	if errors.Is(err, service.ErrNoteNotFound) {
		// One answer for absent, wrong secret and expired alike.
		h.sendJSON(w, http.StatusNotFound, noteNotFoundResponse{Response: "error", NoteFinalText: notFoundText})
		return
	}
	if err != nil {
		log.Printf("Get note failed: %v", err)
		http.Error(w, "failed to get note", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, http.StatusOK, getNoteResponse{Response: "ok", NoteFinalText: view.Text, NoteImage: view.Image})
}

type listedNote struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type listNotesResponse struct {
	Notes   []listedNote `json:"notes"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Total   int          `json:"total"`
}

func (h *Handler) HandleListNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 3)

	views, err := h.Service.ListNotes(r.Context(), page, perPage)
	if err != nil {
		log.Printf("List notes failed: %v", err)
		http.Error(w, "failed to list notes", http.StatusInternalServerError)
		return
	}

	notes := make([]listedNote, 0, len(views))
	for _, view := range views {
		notes = append(notes, listedNote{Text: view.Text, Image: view.Image})
	}

	h.sendJSON(w, http.StatusOK, listNotesResponse{
		Notes:   notes,
		Page:    page,
		PerPage: perPage,
		Total:   len(notes),
	})
}

type pathStatsResponse struct {
	Count    int64            `json:"count"`
	Statuses map[string]int64 `json:"statuses"`
}

type statsResponse struct {
	NoteCount int64                        `json:"note_count"`
	Requests  map[string]pathStatsResponse `json:"requests"`
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.Service.GetStats(r.Context())
	if err != nil {
		log.Printf("Get stats failed: %v", err)
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	requests := make(map[string]pathStatsResponse, len(stats.Requests))
	for path, pathCounts := range stats.Requests {
		statuses := make(map[string]int64, len(pathCounts.Statuses))
		for status, count := range pathCounts.Statuses {
			statuses[strconv.Itoa(status)] = count
		}
		requests[path] = pathStatsResponse{Count: pathCounts.Count, Statuses: statuses}
	}

	h.sendJSON(w, http.StatusOK, statsResponse{NoteCount: stats.NoteCount, Requests: requests})
}

func (h *Handler) saveUploadedImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	return h.Images.Save(file, header.Filename)
}

func (h *Handler) discardImage(name string) {
	if name == "" {
		return
	}
	if err := h.Images.Delete(name); err != nil {
		log.Printf("Failed to remove unreferenced image %s: %v", name, err)
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func formInt(r *http.Request, field string) (int, bool) {
	raw := r.FormValue(field)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func formBool(r *http.Request, field string) (bool, bool) {
	raw := r.FormValue(field)
	if raw == "" {
		return false, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}

func queryInt(r *http.Request, field string, fallback int) int {
	raw := r.URL.Query().Get(field)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
