package handler

import (
	"errors"
	"net/http"

	"github.com/medicore/medicore-api/internal/domain"
	"github.com/medicore/medicore-api/internal/service"
)

// NoteHandler serves the signed-in user's notes.
type NoteHandler struct {
	notes *service.NoteService
}

func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// HandleSubjects lists the user's distinct subjects.
// GET /notes/subjects
func (h *NoteHandler) HandleSubjects(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	subjects, err := h.notes.Subjects(r.Context(), user.ID)
	if err != nil {
		writeServerError(w, r, "list subjects", err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

// HandleCreate creates a note.
// POST /notes
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user := UserFromContext(r.Context())
	note, err := h.notes.Create(r.Context(), user.ID, service.NoteInput{
		Title:   req.Title,
		Content: req.Content,
		Subject: req.Subject,
		Tags:    req.Tags,
	})
	if err != nil {
		h.writeNoteError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteDTO(note))
}

// HandleList lists notes, newest first. ?subject=X filters by subject;
// an empty value or "null" selects notes without a subject.
// GET /notes
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var subject *string
	if q := r.URL.Query(); q.Has("subject") {
		s := q.Get("subject")
		if s == "null" {
			s = ""
		}
		subject = &s
	}

	user := UserFromContext(r.Context())
	notes, err := h.notes.List(r.Context(), user.ID, subject)
	if err != nil {
		writeServerError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteDTOs(notes))
}

// HandleGet returns one note.
// GET /notes/{id}
func (h *NoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	note, err := h.notes.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.writeNoteError(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteDTO(note))
}

// HandleUpdate applies a partial update.
// PUT /notes/{id}
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user := UserFromContext(r.Context())
	note, err := h.notes.Update(r.Context(), user.ID, r.PathValue("id"), req.toUpdate())
	if err != nil {
		h.writeNoteError(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteDTO(note))
}

// HandleDelete removes a note.
// DELETE /notes/{id}
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := h.notes.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		h.writeNoteError(w, r, "delete note", err)
		return
	}
	writeMessage(w, http.StatusOK, "Note deleted successfully.")
}

func (h *NoteHandler) writeNoteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Note not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeServerError(w, r, op, err)
	}
}
