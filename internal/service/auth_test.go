package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medicore/medicore-api/internal/domain"
)

func TestAuthService_Signup(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Signup(ctx, "Alice", "A@X.com", "pw123456")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "a@x.com", user.Email)
	require.False(t, user.IsVerified)

	stored, err := f.db.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, stored.IsVerified)
	require.NotEqual(t, "pw123456", stored.PasswordHash)
	require.True(t, stored.HasPendingOTP())

	require.Equal(t, 1, f.mailer.count())
	require.Equal(t, "Your OTP for MediCore", f.mailer.sent[0].Subject)
	require.Equal(t, "a@x.com", f.mailer.sent[0].To)
	code := f.mailer.lastCode(t)
	require.Equal(t, "Your OTP is "+code+". It expires in 10 minutes.", f.mailer.sent[0].Body)
	// Signup codes are stored as issued.
	require.Equal(t, code, stored.OTPCode)
}

func TestAuthService_Signup_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name, fullName, email, password string
	}{
		{"empty name", "  ", "a@x.com", "pw123456"},
		{"empty email", "Alice", "", "pw123456"},
		{"empty password", "Alice", "a@x.com", ""},
		{"short password", "Alice", "a@x.com", "short"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.auth.Signup(ctx, tc.fullName, tc.email, tc.password)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	require.Zero(t, f.mailer.count())
}

func TestAuthService_Signup_Duplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	_, err = f.auth.Signup(ctx, "Other", "A@x.com", "pw654321")
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	require.Equal(t, 1, f.mailer.count())
}

func TestAuthService_Signup_ConcurrentDuplicates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.auth.Signup(ctx, "Alice", "race@x.com", "pw123456")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrDuplicateEmail):
				conflicts++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, conflicts)

	users, err := f.db.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.False(t, users[0].IsVerified)
}

func TestAuthService_Signup_MailFailureKeepsUser(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.err = errSMTPDown
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.ErrorIs(t, err, domain.ErrNotificationFailed)

	stored, err := f.db.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, stored.IsVerified)
	require.True(t, stored.HasPendingOTP())
}

func TestAuthService_VerifyOTP(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	code := f.mailer.lastCode(t)

	_, err = f.auth.VerifyOTP(ctx, "a@x.com", wrongCode(code))
	require.ErrorIs(t, err, domain.ErrInvalidCode)

	already, err := f.auth.VerifyOTP(ctx, "A@X.COM", code)
	require.NoError(t, err)
	require.False(t, already)

	stored, err := f.db.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, stored.IsVerified)
	require.False(t, stored.HasPendingOTP())

	// Once verified, any code reports success.
	already, err = f.auth.VerifyOTP(ctx, "a@x.com", "000000")
	require.NoError(t, err)
	require.True(t, already)
}

func TestAuthService_VerifyOTP_Errors(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.VerifyOTP(ctx, "nobody@x.com", "123456")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.auth.VerifyOTP(ctx, "a@x.com", "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.auth.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	code := f.mailer.lastCode(t)

	f.clock.Advance(10 * time.Minute)
	_, err = f.auth.VerifyOTP(ctx, "a@x.com", code)
	require.ErrorIs(t, err, domain.ErrOTPExpired)

	// Expiry takes precedence over a mismatch.
	_, err = f.auth.VerifyOTP(ctx, "a@x.com", wrongCode(code))
	require.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestAuthService_Signin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Alice", "a@x.com", "pw123456")

	user, signed, err := f.auth.Signin(ctx, "A@x.com", "pw123456")
	require.NoError(t, err)
	require.Equal(t, "Alice", user.FullName)
	require.NotEmpty(t, signed.Token)
	require.WithinDuration(t, f.clock.Now().Add(24*time.Hour), signed.Session.ExpiresAt, time.Second)

	me, err := f.auth.CurrentUser(ctx, signed.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, me.ID)
}

func TestAuthService_Signin_NonDistinguishing(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Alice", "a@x.com", "pw123456")

	_, _, errUnknown := f.auth.Signin(ctx, "nobody@x.com", "pw123456")
	_, _, errWrong := f.auth.Signin(ctx, "a@x.com", "wrongpassword")

	require.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, domain.ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestAuthService_Signin_UnknownEmailComparesHash(t *testing.T) {
	// A cost high enough that one bcrypt comparison dominates the call.
	f := newAuthFixtureWithCost(t, 10)
	ctx := context.Background()
	f.signupVerified(t, "Alice", "a@x.com", "pw123456")

	start := time.Now()
	_, _, err := f.auth.Signin(ctx, "a@x.com", "wrongpassword")
	wrongPassword := time.Since(start)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	start = time.Now()
	_, _, err = f.auth.Signin(ctx, "nobody@x.com", "wrongpassword")
	unknownEmail := time.Since(start)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.Greater(t, unknownEmail, wrongPassword/4,
		"unknown email answered in %v, wrong password in %v", unknownEmail, wrongPassword)
}

func TestAuthService_Signin_Unverified(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	_, _, err = f.auth.Signin(ctx, "a@x.com", "pw123456")
	require.ErrorIs(t, err, domain.ErrNotVerified)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Alice", "a@x.com", "pw123456")

	_, signed, err := f.auth.Signin(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, signed.Token))
	require.NoError(t, f.auth.Logout(ctx, signed.Token))
	require.NoError(t, f.auth.Logout(ctx, ""))

	_, err = f.auth.CurrentUser(ctx, signed.Token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_CurrentUser_SessionExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Alice", "a@x.com", "pw123456")

	_, signed, err := f.auth.Signin(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	_, err = f.auth.CurrentUser(ctx, signed.Token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.ErrorIs(t, err, domain.ErrSessionExpired)

	_, err = f.db.Sessions().GetByID(ctx, signed.Session.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthService_CurrentUser_BadToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.CurrentUser(ctx, "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.auth.CurrentUser(ctx, "not-a-token")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Alice", "a@x.com", "pw123456")

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "a@x.com"))
	code := f.mailer.lastCode(t)

	stored, err := f.db.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	// Reset codes are stored hashed.
	require.NotEqual(t, code, stored.OTPCode)

	err = f.auth.ResetPassword(ctx, "a@x.com", wrongCode(code), "newpass123")
	require.ErrorIs(t, err, domain.ErrInvalidCode)

	require.NoError(t, f.auth.ResetPassword(ctx, "a@x.com", code, "newpass123"))

	_, _, err = f.auth.Signin(ctx, "a@x.com", "pw123456")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = f.auth.Signin(ctx, "a@x.com", "newpass123")
	require.NoError(t, err)

	// The code is cleared after use.
	err = f.auth.ResetPassword(ctx, "a@x.com", code, "another123")
	require.ErrorIs(t, err, domain.ErrNoOTPPending)
}

func TestAuthService_PasswordReset_VerifiesPendingAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.err = errSMTPDown
	ctx := context.Background()

	// Signup mail is lost, so the account never sees its signup code.
	_, err := f.auth.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.ErrorIs(t, err, domain.ErrNotificationFailed)
	f.mailer.err = nil

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "a@x.com"))
	code := f.mailer.lastCode(t)

	// The reset code replaced the signup code and is not a signup code.
	_, err = f.auth.VerifyOTP(ctx, "a@x.com", code)
	require.ErrorIs(t, err, domain.ErrInvalidCode)

	require.NoError(t, f.auth.ResetPassword(ctx, "a@x.com", code, "newpass123"))

	stored, err := f.db.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, stored.IsVerified)
	require.False(t, stored.HasPendingOTP())

	already, err := f.auth.VerifyOTP(ctx, "a@x.com", code)
	require.NoError(t, err)
	require.True(t, already)

	_, _, err = f.auth.Signin(ctx, "a@x.com", "newpass123")
	require.NoError(t, err)
}

func TestAuthService_PasswordReset_Expired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Alice", "a@x.com", "pw123456")

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "a@x.com"))
	code := f.mailer.lastCode(t)

	f.clock.Advance(11 * time.Minute)
	err := f.auth.ResetPassword(ctx, "a@x.com", code, "newpass123")
	require.ErrorIs(t, err, domain.ErrNoOTPPending)

	// Password unchanged.
	_, _, err = f.auth.Signin(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
}

func TestAuthService_PasswordReset_Errors(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	err := f.auth.RequestPasswordReset(ctx, "nobody@x.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Zero(t, f.mailer.count())

	err = f.auth.ResetPassword(ctx, "nobody@x.com", "123456", "newpass123")
	require.ErrorIs(t, err, domain.ErrNotFound)

	f.signupVerified(t, "Alice", "a@x.com", "pw123456")
	err = f.auth.ResetPassword(ctx, "a@x.com", "123456", "newpass123")
	require.ErrorIs(t, err, domain.ErrNoOTPPending)

	err = f.auth.ResetPassword(ctx, "a@x.com", "123456", "short")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_RequestReset_LastWriteWins(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Alice", "a@x.com", "pw123456")

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "a@x.com"))
	first := f.mailer.lastCode(t)
	require.NoError(t, f.auth.RequestPasswordReset(ctx, "a@x.com"))
	second := f.mailer.lastCode(t)

	if first != second {
		err := f.auth.ResetPassword(ctx, "a@x.com", first, "newpass123")
		require.ErrorIs(t, err, domain.ErrInvalidCode)
	}
	require.NoError(t, f.auth.ResetPassword(ctx, "a@x.com", second, "newpass123"))
}

func TestAuthService_ListUsers(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	_, err = f.auth.Signup(ctx, "Bob", "b@x.com", "pw123456")
	require.NoError(t, err)

	users, err := f.auth.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
}

// wrongCode returns a valid-looking code different from code.
func wrongCode(code string) string {
	if code == "999999" {
		return "100000"
	}
	return "999999"
}
