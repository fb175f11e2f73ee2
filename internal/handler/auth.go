package handler

import (
	"errors"
	"net/http"

	"github.com/medicore/medicore-api/internal/domain"
	"github.com/medicore/medicore-api/internal/service"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "medicore_session"

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth         *service.AuthService
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure}
}

// HandleSignup creates an unverified account and emails its code.
// POST /signup
// Request:  {"fullName":"...","email":"...","password":"..."}
// Response: {"message":"..."}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	_, err := h.auth.Signup(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "Email already registered")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeServerError(w, r, "signup", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "OTP sent to email, verify to activate account")
}

// HandleVerifyOTP verifies the signup code.
// POST /verify-otp
// Request:  {"email":"...","otp":"..."}
// Response: {"message":"..."}
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	already, err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, domain.ErrOTPExpired):
			writeError(w, http.StatusBadRequest, "OTP expired")
		case errors.Is(err, domain.ErrInvalidCode):
			writeError(w, http.StatusBadRequest, "Invalid OTP")
		case errors.Is(err, domain.ErrNoOTPPending):
			writeError(w, http.StatusBadRequest, "No OTP pending")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeServerError(w, r, "verify otp", err)
		}
		return
	}

	if already {
		writeMessage(w, http.StatusOK, "User already verified")
		return
	}
	writeMessage(w, http.StatusOK, "User verified successfully")
}

// HandleSignin checks credentials and sets the session cookie.
// POST /signin
// Request:  {"email":"...","password":"..."}
// Response: {"message":"...","user":{...}}
func (h *AuthHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, signed, err := h.auth.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, domain.ErrNotVerified):
			writeError(w, http.StatusUnauthorized, "Account not verified. Please verify your email.")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeServerError(w, r, "signin", err)
		}
		return
	}

	h.setSessionCookie(w, signed.Token, int(signed.Session.ExpiresAt.Sub(signed.Session.CreatedAt).Seconds()))

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Sign in successful",
		"user":    toUserDTO(user),
	})
}

// HandleLogout destroys the session and clears the cookie.
// POST /logout
// Response: {"message":"..."}
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		token = cookie.Value
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeServerError(w, r, "logout", err)
		return
	}

	h.setSessionCookie(w, "", -1)
	writeMessage(w, http.StatusOK, "Logged out successfully.")
}

// HandleMe returns the currently authenticated user.
// GET /me
// Response: {"user": {...}}
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized: Please log in to access this resource.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleRequestReset emails a password reset code.
// POST /request-reset
// Request:  {"email":"..."}
// Response: {"message":"..."}
func (h *AuthHandler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusBadRequest, "User not found")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeServerError(w, r, "request reset", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Password reset OTP sent to your email")
}

// HandleResetPassword sets a new password using a reset code.
// POST /reset-password
// Request:  {"email":"...","otp":"...","newPassword":"..."}
// Response: {"message":"..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	err := h.auth.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, domain.ErrNoOTPPending):
			writeError(w, http.StatusBadRequest, "OTP expired or invalid")
		case errors.Is(err, domain.ErrInvalidCode):
			writeError(w, http.StatusBadRequest, "Invalid OTP")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeServerError(w, r, "reset password", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Password reset successful")
}

// HandleListUsers lists every account for administrators.
// GET /admin/users
func (h *AuthHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeServerError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminUserDTOs(users))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
