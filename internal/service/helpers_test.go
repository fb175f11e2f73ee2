package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medicore/medicore-api/internal/repository/sqlite"
	"github.com/medicore/medicore-api/internal/service"
)

const testSessionSecret = "test-secret-key-for-unit-tests-0123456789"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	To, Subject, Body string
}

// recordingMailer keeps every message it is asked to send.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// lastCode returns the code from the most recent message.
func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	code := codePattern.FindString(m.sent[len(m.sent)-1].Body)
	require.NotEmpty(t, code, "no code in mail body")
	return code
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type authFixture struct {
	auth     *service.AuthService
	sessions *service.SessionManager
	db       *sqlite.DB
	mailer   *recordingMailer
	clock    *fakeClock
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	// Use cost 4 for fast tests.
	return newAuthFixtureWithCost(t, 4)
}

func newAuthFixtureWithCost(t *testing.T, cost int) *authFixture {
	t.Helper()
	db := newTestDB(t)
	clock := newFakeClock()
	mailer := &recordingMailer{}

	hasher := service.NewPasswordHasher(cost)
	otp := service.NewOTPEngine(hasher, service.DefaultOTPTTL, clock.Now)
	sessions := service.NewSessionManager(db.Sessions(), db.Users(), service.DefaultSessionTTL, clock.Now)
	tokens := service.NewSessionTokens(testSessionSecret)

	return &authFixture{
		auth:     service.NewAuthService(db.Users(), hasher, otp, sessions, tokens, mailer),
		sessions: sessions,
		db:       db,
		mailer:   mailer,
		clock:    clock,
	}
}

// signupVerified creates an account and verifies it.
func (f *authFixture) signupVerified(t *testing.T, name, email, password string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, name, email, password)
	require.NoError(t, err)
	_, err = f.auth.VerifyOTP(ctx, email, f.mailer.lastCode(t))
	require.NoError(t, err)
}

var errSMTPDown = errors.New("smtp down")
