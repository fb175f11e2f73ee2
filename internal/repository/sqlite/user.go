package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medicore/medicore-api/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SqlDB}
}

const userColumns = `id, full_name, email, password_hash, is_verified, otp_code, otp_expires_at, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.Email = domain.NormalizeEmail(user.Email)

	var otpCode sql.NullString
	var otpExpires sql.NullTime
	if user.HasPendingOTP() {
		otpCode = sql.NullString{String: user.OTPCode, Valid: true}
		otpExpires = sql.NullTime{Time: user.OTPExpiresAt.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.FullName, user.Email, user.PasswordHash, user.IsVerified,
		otpCode, otpExpires, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, domain.NormalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

// Update applies the non-nil fields of upd in a single statement and returns
// the stored user.
func (r *UserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	if upd.OTP != nil && upd.ClearOTP {
		return nil, fmt.Errorf("%w: cannot set and clear otp together", domain.ErrInvalidInput)
	}

	var (
		sets []string
		args []any
	)
	if upd.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *upd.PasswordHash)
	}
	if upd.IsVerified != nil {
		sets = append(sets, "is_verified = ?")
		args = append(args, *upd.IsVerified)
	}
	switch {
	case upd.OTP != nil:
		sets = append(sets, "otp_code = ?", "otp_expires_at = ?")
		args = append(args, upd.OTP.Code, upd.OTP.ExpiresAt.UTC())
	case upd.ClearOTP:
		sets = append(sets, "otp_code = NULL", "otp_expires_at = NULL")
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// List returns every user ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user       domain.User
		otpCode    sql.NullString
		otpExpires sql.NullTime
	)
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &user.IsVerified,
		&otpCode, &otpExpires, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if otpCode.Valid && otpExpires.Valid {
		user.OTPCode = otpCode.String
		expires := otpExpires.Time
		user.OTPExpiresAt = &expires
	}
	return &user, nil
}
