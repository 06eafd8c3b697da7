package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/2beens/jotter/internal/store"
	"github.com/2beens/jotter/internal/web"
)

// Service appends to and lists a user's note list. Notes are append-only;
// the whole list is destroyed together with the account.
type Service struct {
	store    *store.Store
	renderer *renderer
	// injectable clock for tests
	NowFunc func() time.Time
}

func NewService(s *store.Store) *Service {
	return &Service{
		store:    s,
		renderer: newRenderer(),
		NowFunc:  time.Now,
	}
}

// Append creates a note with the current timestamp and the raw Markdown body
// and pushes it to the end of the user's list. There is no size cap on the
// body.
func (s *Service) Append(ctx context.Context, username, body string) (Note, error) {
	note := Note{
		Date: s.NowFunc().Format(timestampFormat),
		Body: body,
	}

	serialized, err := json.Marshal(note)
	if err != nil {
		return Note{}, fmt.Errorf("marshal note: %w", err)
	}

	if err := s.store.AppendNote(ctx, username, string(serialized)); err != nil {
		return Note{}, err
	}

	return note, nil
}

// List returns the user's notes newest first, bodies rendered from Markdown
// to sanitized HTML.
func (s *Service) List(ctx context.Context, username string) ([]web.NoteView, error) {
	serialized, err := s.store.ListNotes(ctx, username)
	if err != nil {
		return nil, err
	}

	// storage order is chronological ascending, presentation is newest first
	views := make([]web.NoteView, 0, len(serialized))
	for i := len(serialized) - 1; i >= 0; i-- {
		var note Note
		if err := json.Unmarshal([]byte(serialized[i]), &note); err != nil {
			return nil, fmt.Errorf("unmarshal note: %w", err)
		}
		views = append(views, s.Render(note))
	}

	return views, nil
}

// Render converts a single note to its presentation form.
func (s *Service) Render(note Note) web.NoteView {
	return web.NoteView{
		Date: note.Date,
		Body: s.renderer.toHTML(note.Body),
	}
}

func (s *Service) Count(ctx context.Context, username string) (int64, error) {
	return s.store.CountNotes(ctx, username)
}
