package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/medicore/medicore-api/internal/domain"
)

// NoteService handles business logic for personal notes.
type NoteService struct {
	notes domain.NoteRepository
}

// NewNoteService creates a new NoteService.
func NewNoteService(notes domain.NoteRepository) *NoteService {
	return &NoteService{notes: notes}
}

// NoteInput carries the fields of a new note.
type NoteInput struct {
	Title   string
	Content string
	Subject string
	Tags    []string
}

// Create validates and stores a new note owned by userID.
func (s *NoteService) Create(ctx context.Context, userID string, in NoteInput) (*domain.Note, error) {
	title := strings.TrimSpace(in.Title)
	subject := strings.TrimSpace(in.Subject)
	if title == "" || in.Content == "" || subject == "" {
		return nil, fmt.Errorf("%w: title, content, and subject are required", domain.ErrInvalidInput)
	}

	note := &domain.Note{
		ID:      ulid.Make().String(),
		UserID:  userID,
		Title:   title,
		Content: in.Content,
		Subject: subject,
		Tags:    NormalizeTags(in.Tags),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// Get returns a note owned by userID.
func (s *NoteService) Get(ctx context.Context, userID, id string) (*domain.Note, error) {
	if err := validateNoteID(id); err != nil {
		return nil, err
	}
	return s.notes.GetByID(ctx, userID, id)
}

// List returns the user's notes, newest first. A non-nil subject is trimmed
// before filtering.
func (s *NoteService) List(ctx context.Context, userID string, subject *string) ([]domain.Note, error) {
	var filter domain.NoteFilter
	if subject != nil {
		trimmed := strings.TrimSpace(*subject)
		filter.Subject = &trimmed
	}
	notes, err := s.notes.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Subjects returns the distinct subjects the user has filed notes under.
func (s *NoteService) Subjects(ctx context.Context, userID string) ([]string, error) {
	subjects, err := s.notes.ListSubjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Update applies a partial update. Title and subject may not be emptied;
// content may.
func (s *NoteService) Update(ctx context.Context, userID, id string, upd domain.NoteUpdate) (*domain.Note, error) {
	if err := validateNoteID(id); err != nil {
		return nil, err
	}
	if upd.Empty() {
		return nil, fmt.Errorf("%w: no valid update data provided", domain.ErrInvalidInput)
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
		}
		upd.Title = &title
	}
	if upd.Subject != nil {
		subject := strings.TrimSpace(*upd.Subject)
		if subject == "" {
			return nil, fmt.Errorf("%w: subject cannot be empty", domain.ErrInvalidInput)
		}
		upd.Subject = &subject
	}
	if upd.Tags != nil {
		tags := NormalizeTags(*upd.Tags)
		upd.Tags = &tags
	}

	return s.notes.Update(ctx, userID, id, upd)
}

// Delete removes a note owned by userID.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	if err := validateNoteID(id); err != nil {
		return err
	}
	return s.notes.Delete(ctx, userID, id)
}

// NormalizeTags trims every tag and drops empty ones.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// SplitTags parses a comma-separated tag list.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

func validateNoteID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("%w: invalid note id format", domain.ErrInvalidInput)
	}
	return nil
}
