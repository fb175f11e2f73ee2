package domain

import (
	"context"
	"strings"
	"time"
)

// User represents a registered account. OTPCode holds either the code as issued
// (signup) or its bcrypt hash (password reset); OTPCode and OTPExpiresAt are
// always written together.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	IsVerified   bool
	OTPCode      string
	OTPExpiresAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPendingOTP reports whether an OTP has been issued and not cleared.
func (u *User) HasPendingOTP() bool {
	return u.OTPCode != "" && u.OTPExpiresAt != nil
}

// OTP is the stored form of a one-time code.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

// UserUpdate lists the fields to change on a user. Nil fields are left as is.
// Setting OTP and ClearOTP together is invalid.
type UserUpdate struct {
	PasswordHash *string
	IsVerified   *bool
	OTP          *OTP
	ClearOTP     bool
}

// UserRepository defines persistence operations for users.
// Email lookups are case-insensitive.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// NormalizeEmail trims and lower-cases an email so that addresses differing
// only by case map to the same account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
