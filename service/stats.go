package service

import (
	"context"
	"fmt"

	"github.com/notedrop/notedrop/cache"
	"github.com/notedrop/notedrop/models"
)

type Stats struct {
	NoteCount int64
	Requests  map[string]cache.PathCounts
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	noteCount, err := s.Cache.GetNoteCount(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("get note count failed: %w", err)
	}

	requests, err := s.Cache.GetRequestCounts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("get request counts failed: %w", err)
	}

	return Stats{NoteCount: noteCount, Requests: requests}, nil
}

const (
	maxPerPage = 100
	// maxPage bounds the offset emulation below: the fetch grows with
	// page*perPage, so an unbounded page would turn one request into a
	// full index scan (and overflow the int32 limit into "no limit").
	maxPage = 100
)

// ListNotes is a browsing aid, not part of the lifecycle: it pages through
// stored notes newest-first. Secrets stay out of the result by type.
func (s *Service) ListNotes(ctx context.Context, page int, perPage int) ([]models.NoteView, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page > maxPage {
		// Past the supported browsing depth; nothing to serve.
		return []models.NoteView{}, nil
	}

	// The store pages by cursor, not offset, so fetch through the requested
	// page and slice.
	notes, err := s.Store.ListNotes(ctx, int32(page*perPage))
	if err != nil {
		return nil, fmt.Errorf("list notes failed: %w", err)
	}

	start := (page - 1) * perPage
	if start >= len(notes) {
		return []models.NoteView{}, nil
	}
	end := start + perPage
	if end > len(notes) {
		end = len(notes)
	}

	views := make([]models.NoteView, 0, end-start)
	for _, note := range notes[start:end] {
		views = append(views, note.View())
	}

	return views, nil
}
