package domain

import (
	"context"
	"time"
)

// Note is a personal note owned by a single user and grouped by subject.
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Subject   string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteFilter narrows a note listing. A nil Subject matches every note; an
// empty Subject matches notes without one.
type NoteFilter struct {
	Subject *string
}

// NoteUpdate lists the fields to change on a note. Nil fields are left as is.
type NoteUpdate struct {
	Title   *string
	Content *string
	Subject *string
	Tags    *[]string
}

// Empty reports whether the update changes nothing.
func (u NoteUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Subject == nil && u.Tags == nil
}

// NoteRepository defines persistence operations for notes. Every lookup is
// scoped to the owning user; a note owned by someone else is ErrNotFound.
type NoteRepository interface {
	Create(ctx context.Context, note *Note) error
	GetByID(ctx context.Context, userID, id string) (*Note, error)
	List(ctx context.Context, userID string, filter NoteFilter) ([]Note, error)
	ListSubjects(ctx context.Context, userID string) ([]string, error)
	Update(ctx context.Context, userID, id string, upd NoteUpdate) (*Note, error)
	Delete(ctx context.Context, userID, id string) error
}
