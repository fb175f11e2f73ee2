package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/medicore/medicore-api/internal/domain"
	"github.com/medicore/medicore-api/internal/handler"
	"github.com/medicore/medicore-api/internal/repository/sqlite"
	"github.com/medicore/medicore-api/internal/search"
	"github.com/medicore/medicore-api/internal/service"
)

const (
	testSessionSecret = "test-secret-for-handler-tests-0123456789"
	testAdminKey      = "test-admin-key"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

// captureMailer keeps the bodies of sent messages.
type captureMailer struct {
	mu     sync.Mutex
	bodies []string
}

func (m *captureMailer) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bodies) == 0 {
		t.Fatal("no mail sent")
	}
	code := codePattern.FindString(m.bodies[len(m.bodies)-1])
	if code == "" {
		t.Fatalf("no code in mail body %q", m.bodies[len(m.bodies)-1])
	}
	return code
}

type stubProvider struct {
	name    string
	results []domain.SearchResult
	err     error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Search(context.Context, string) ([]domain.SearchResult, error) {
	return p.results, p.err
}

type testEnv struct {
	db       *sqlite.DB
	auth     *service.AuthService
	sessions *service.SessionManager
	tokens   *service.SessionTokens
	mailer   *captureMailer
	clock    *fakeClock
	srv      *httptest.Server
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAuthService(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := &fakeClock{now: time.Now().UTC()}
	mailer := &captureMailer{}

	// Use cost 4 for fast tests.
	hasher := service.NewPasswordHasher(4)
	otp := service.NewOTPEngine(hasher, service.DefaultOTPTTL, clock.Now)
	sessions := service.NewSessionManager(db.Sessions(), db.Users(), service.DefaultSessionTTL, clock.Now)
	tokens := service.NewSessionTokens(testSessionSecret)

	return &testEnv{
		db:       db,
		auth:     service.NewAuthService(db.Users(), hasher, otp, sessions, tokens, mailer),
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		clock:    clock,
	}
}

// newTestServer wires the full route table behind the standard middleware.
func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	env := newTestAuthService(t)

	agg := search.NewAggregator(time.Second,
		stubProvider{name: "wikipedia", results: []domain.SearchResult{{
			Title: "Aspirin", Description: "An analgesic.", Link: "https://en.wikipedia.org/wiki/Aspirin", Source: "Wikipedia",
		}}},
		stubProvider{name: "ncbi", err: io.ErrUnexpectedEOF},
	)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Auth:     env.auth,
		Notes:    service.NewNoteService(env.db.Notes()),
		Search:   agg,
		Stores:   []handler.Pinger{env.db},
		AdminKey: testAdminKey,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.srv = httptest.NewServer(handler.Wrap(mux, logger, []string{"http://localhost:3000"}))
	t.Cleanup(env.srv.Close)
	return env
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// doJSON sends body as JSON and decodes the response into a generic map.
func doJSON(t *testing.T, client *http.Client, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

// signupAndVerify registers an account over HTTP and verifies it.
func (e *testEnv) signupAndVerify(t *testing.T, client *http.Client, name, email, password string) {
	t.Helper()
	status, body := doJSON(t, client, http.MethodPost, e.srv.URL+"/signup", map[string]string{
		"fullName": name, "email": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d (%v)", status, body)
	}
	status, body = doJSON(t, client, http.MethodPost, e.srv.URL+"/verify-otp", map[string]string{
		"email": email, "otp": e.mailer.lastCode(t),
	})
	if status != http.StatusOK {
		t.Fatalf("verify-otp: expected 200, got %d (%v)", status, body)
	}
}

// signin signs in and fails the test on anything but 200.
func (e *testEnv) signin(t *testing.T, client *http.Client, email, password string) {
	t.Helper()
	status, body := doJSON(t, client, http.MethodPost, e.srv.URL+"/signin", map[string]string{
		"email": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d (%v)", status, body)
	}
}
