package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/medicore/medicore-api/internal/domain"
	"github.com/medicore/medicore-api/internal/service"
)

type signupRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type requestResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// UserDTO is the public profile of a user. It never carries the password
// hash or OTP fields.
type UserDTO struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{ID: u.ID, FullName: u.FullName, Email: u.Email}
}

// AdminUserDTO is a user as listed to administrators.
type AdminUserDTO struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
	CreatedAt  string `json:"createdAt"`
}

func toAdminUserDTOs(users []domain.User) []AdminUserDTO {
	dtos := make([]AdminUserDTO, len(users))
	for i, u := range users {
		dtos[i] = AdminUserDTO{
			ID:         u.ID,
			FullName:   u.FullName,
			Email:      u.Email,
			IsVerified: u.IsVerified,
			CreatedAt:  u.CreatedAt.Format(time.RFC3339),
		}
	}
	return dtos
}

// tagList accepts tags either as a JSON array or as a comma-separated string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = tagList{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = service.SplitTags(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tags must be a string or an array of strings")
	}
	*t = list
	return nil
}

type createNoteRequest struct {
	Title   string  `json:"title" validate:"required"`
	Content string  `json:"content" validate:"required"`
	Subject string  `json:"subject" validate:"required"`
	Tags    tagList `json:"tags"`
}

type updateNoteRequest struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Subject *string  `json:"subject"`
	Tags    *tagList `json:"tags"`
}

func (r updateNoteRequest) toUpdate() domain.NoteUpdate {
	upd := domain.NoteUpdate{Title: r.Title, Content: r.Content, Subject: r.Subject}
	if r.Tags != nil {
		tags := []string(*r.Tags)
		upd.Tags = &tags
	}
	return upd
}

// NoteDTO is the JSON representation of a note.
type NoteDTO struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Subject   string   `json:"subject"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

func toNoteDTO(n *domain.Note) NoteDTO {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return NoteDTO{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		Subject:   n.Subject,
		Tags:      tags,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.Format(time.RFC3339),
	}
}

func toNoteDTOs(notes []domain.Note) []NoteDTO {
	dtos := make([]NoteDTO, len(notes))
	for i := range notes {
		dtos[i] = toNoteDTO(&notes[i])
	}
	return dtos
}

// SearchResultDTO is a single search hit.
type SearchResultDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Source      string `json:"source"`
}

func toSearchResultDTOs(results []domain.SearchResult) []SearchResultDTO {
	dtos := make([]SearchResultDTO, len(results))
	for i, r := range results {
		dtos[i] = SearchResultDTO(r)
	}
	return dtos
}
