package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medicore/medicore-api/internal/search"
	"github.com/medicore/medicore-api/internal/service"
)

// Deps bundles what the HTTP layer needs.
type Deps struct {
	Auth         *service.AuthService
	Notes        *service.NoteService
	Search       *search.Aggregator
	Stores       []Pinger
	AdminKey     string
	CookieSecure bool
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.Handle("GET /readyz", HandleReadyz(d.Stores...))
	mux.Handle("GET /metrics", promhttp.Handler())

	authHandler := NewAuthHandler(d.Auth, d.CookieSecure)
	mux.HandleFunc("POST /signup", authHandler.HandleSignup)
	mux.HandleFunc("POST /verify-otp", authHandler.HandleVerifyOTP)
	mux.HandleFunc("POST /signin", authHandler.HandleSignin)
	mux.HandleFunc("POST /logout", authHandler.HandleLogout)
	mux.HandleFunc("POST /request-reset", authHandler.HandleRequestReset)
	mux.HandleFunc("POST /reset-password", authHandler.HandleResetPassword)
	mux.Handle("GET /me", RequireAuth(d.Auth, http.HandlerFunc(authHandler.HandleMe)))

	if d.AdminKey != "" {
		mux.Handle("GET /admin/users", RequireAdminKey(d.AdminKey, http.HandlerFunc(authHandler.HandleListUsers)))
	}

	if d.Notes != nil {
		noteHandler := NewNoteHandler(d.Notes)
		mux.Handle("GET /notes/subjects", RequireAuth(d.Auth, http.HandlerFunc(noteHandler.HandleSubjects)))
		mux.Handle("GET /notes", RequireAuth(d.Auth, http.HandlerFunc(noteHandler.HandleList)))
		mux.Handle("POST /notes", RequireAuth(d.Auth, http.HandlerFunc(noteHandler.HandleCreate)))
		mux.Handle("GET /notes/{id}", RequireAuth(d.Auth, http.HandlerFunc(noteHandler.HandleGet)))
		mux.Handle("PUT /notes/{id}", RequireAuth(d.Auth, http.HandlerFunc(noteHandler.HandleUpdate)))
		mux.Handle("DELETE /notes/{id}", RequireAuth(d.Auth, http.HandlerFunc(noteHandler.HandleDelete)))
	}

	if d.Search != nil {
		searchHandler := NewSearchHandler(d.Search)
		mux.HandleFunc("GET /search", searchHandler.HandleSearch)
		mux.HandleFunc("GET /search/{provider}", searchHandler.HandleProvider)
	}
}
