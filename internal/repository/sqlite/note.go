package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/medicore/medicore-api/internal/domain"
)

// NoteRepository implements domain.NoteRepository using SQLite. Tags are
// stored as a JSON array.
type NoteRepository struct {
	db *sql.DB
}

// NewNoteRepository creates a new SQLite-backed NoteRepository.
func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db.SqlDB}
}

const noteColumns = `id, user_id, title, content, subject, tags, created_at, updated_at`

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) error {
	now := time.Now().UTC()
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.UserID, note.Title, note.Content, note.Subject, tags, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	note.CreatedAt = now
	note.UpdatedAt = now
	return nil
}

func (r *NoteRepository) GetByID(ctx context.Context, userID, id string) (*domain.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query note: %w", err)
	}
	return note, nil
}

// List returns the user's notes, most recently updated first.
func (r *NoteRepository) List(ctx context.Context, userID string, filter domain.NoteFilter) ([]domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = ?`
	args := []any{userID}
	if filter.Subject != nil {
		query += ` AND subject = ?`
		args = append(args, *filter.Subject)
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *note)
	}
	return notes, rows.Err()
}

// ListSubjects returns the distinct non-empty subjects of the user's notes,
// sorted case-insensitively.
func (r *NoteRepository) ListSubjects(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT subject FROM notes WHERE user_id = ? AND subject <> ''`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := []string{}
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(subjects, func(i, j int) bool {
		return strings.ToLower(subjects[i]) < strings.ToLower(subjects[j])
	})
	return subjects, nil
}

func (r *NoteRepository) Update(ctx context.Context, userID, id string, upd domain.NoteUpdate) (*domain.Note, error) {
	var (
		sets []string
		args []any
	)
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *upd.Content)
	}
	if upd.Subject != nil {
		sets = append(sets, "subject = ?")
		args = append(args, *upd.Subject)
	}
	if upd.Tags != nil {
		tags, err := encodeTags(*upd.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id, userID)

	result, err := r.db.ExecContext(ctx,
		`UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, userID, id)
}

func (r *NoteRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanNote(row rowScanner) (*domain.Note, error) {
	var (
		note domain.Note
		tags string
	)
	err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.Content, &note.Subject,
		&tags, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &note.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return &note, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}
