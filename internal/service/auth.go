package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/medicore/medicore-api/internal/domain"
	"github.com/medicore/medicore-api/internal/metrics"
)

const otpSubject = "Your OTP for MediCore"

// AuthService drives signup, verification, signin and password reset.
type AuthService struct {
	users    domain.UserRepository
	hasher   *PasswordHasher
	otp      *OTPEngine
	sessions *SessionManager
	tokens   *SessionTokens
	mailer   domain.Mailer

	// dummyHash is compared against when the email is unknown so that both
	// signin failures cost one bcrypt comparison.
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users domain.UserRepository,
	hasher *PasswordHasher,
	otp *OTPEngine,
	sessions *SessionManager,
	tokens *SessionTokens,
	mailer domain.Mailer,
) *AuthService {
	dummyHash, err := hasher.Hash("medicore-unknown-account")
	if err != nil {
		slog.Error("precompute dummy hash", "error", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		otp:       otp,
		sessions:  sessions,
		tokens:    tokens,
		mailer:    mailer,
		dummyHash: dummyHash,
	}
}

// SignedSession is an established session together with its cookie token.
type SignedSession struct {
	Session *domain.Session
	Token   string
}

// Signup creates an unverified account and emails it a verification code.
// A delivery failure leaves the account in place and returns
// ErrNotificationFailed.
func (s *AuthService) Signup(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	user, err := s.signup(ctx, fullName, email, password)
	s.record("signup", err)
	return user, err
}

func (s *AuthService) signup(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = domain.NormalizeEmail(email)
	if fullName == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields required", domain.ErrInvalidInput)
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, otp, err := s.otp.Issue(OTPSignup)
	if err != nil {
		return nil, err
	}

	expires := otp.ExpiresAt
	user := &domain.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		OTPCode:      otp.Code,
		OTPExpiresAt: &expires,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendCode(ctx, user.Email, code); err != nil {
		return user, err
	}
	return user, nil
}

// VerifyOTP marks the account verified when code matches the pending signup
// code. An already verified account reports alreadyVerified without
// checking code.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (alreadyVerified bool, err error) {
	alreadyVerified, err = s.verifyOTP(ctx, email, code)
	s.record("verify_otp", err)
	return alreadyVerified, err
}

func (s *AuthService) verifyOTP(ctx context.Context, email, code string) (bool, error) {
	if strings.TrimSpace(email) == "" || code == "" {
		return false, fmt.Errorf("%w: email and otp required", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	if user.IsVerified {
		return true, nil
	}

	if err := s.otp.Validate(user, code, OTPSignup); err != nil {
		return false, err
	}

	verified := true
	upd := s.otp.Clear()
	upd.IsVerified = &verified
	if _, err := s.users.Update(ctx, user.ID, upd); err != nil {
		return false, fmt.Errorf("update user: %w", err)
	}
	return false, nil
}

// Signin checks credentials and establishes a session. Unknown email and
// wrong password both fail with ErrInvalidCredentials.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*domain.User, *SignedSession, error) {
	user, signed, err := s.signin(ctx, email, password)
	s.record("signin", err)
	return user, signed, err
}

func (s *AuthService) signin(ctx context.Context, email, password string) (*domain.User, *SignedSession, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password required", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, nil, domain.ErrNotVerified
	}

	session, err := s.sessions.Establish(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	token, err := s.tokens.Sign(session)
	if err != nil {
		return nil, nil, err
	}
	return user, &SignedSession{Session: session, Token: token}, nil
}

// Logout destroys the session behind token. An empty or invalid token is
// not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	err := s.logout(ctx, token)
	s.record("logout", err)
	return err
}

func (s *AuthService) logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sessionID, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return s.sessions.Destroy(ctx, sessionID)
}

// CurrentUser resolves the session behind token to its user.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	sessionID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return s.sessions.Validate(ctx, sessionID)
}

// RequestPasswordReset issues a reset code and emails it. Unlike Signin, an
// unknown email is reported as ErrNotFound.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	err := s.requestPasswordReset(ctx, email)
	s.record("request_reset", err)
	return err
}

func (s *AuthService) requestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email required", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	code, otp, err := s.otp.Issue(OTPReset)
	if err != nil {
		return err
	}
	if _, err := s.users.Update(ctx, user.ID, domain.UserUpdate{OTP: &otp}); err != nil {
		return fmt.Errorf("store reset otp: %w", err)
	}

	return s.sendCode(ctx, user.Email, code)
}

// ResetPassword replaces the password when code matches the pending reset
// code. An expired code is reported as ErrNoOTPPending. The code was mailed
// to the account's address, so a successful reset also verifies an
// unverified account.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	err := s.resetPassword(ctx, email, code, newPassword)
	s.record("reset_password", err)
	return err
}

func (s *AuthService) resetPassword(ctx context.Context, email, code, newPassword string) error {
	if strings.TrimSpace(email) == "" || code == "" || newPassword == "" {
		return fmt.Errorf("%w: all fields required", domain.ErrInvalidInput)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if err := s.otp.Validate(user, code, OTPReset); err != nil {
		if errors.Is(err, domain.ErrOTPExpired) {
			return fmt.Errorf("%w: %w", domain.ErrNoOTPPending, err)
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	upd := s.otp.Clear()
	upd.PasswordHash = &hash
	if !user.IsVerified {
		verified := true
		upd.IsVerified = &verified
	}
	if _, err := s.users.Update(ctx, user.ID, upd); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListUsers returns every account.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AuthService) sendCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your OTP is %s. It expires in %d minutes.", code, int(s.otp.TTL().Minutes()))
	if err := s.mailer.Send(ctx, to, otpSubject, body); err != nil {
		slog.Error("send otp", "to", to, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}
	return nil
}

func (s *AuthService) record(event string, err error) {
	metrics.AuthEvent(event, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrNotVerified):
		return "not_verified"
	case errors.Is(err, domain.ErrNoOTPPending):
		return "no_otp_pending"
	case errors.Is(err, domain.ErrOTPExpired):
		return "otp_expired"
	case errors.Is(err, domain.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrNotificationFailed):
		return "notification_failed"
	default:
		return "error"
	}
}
