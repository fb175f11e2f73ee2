package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCode        = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrNoOTPPending       = errors.New("no otp pending")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotificationFailed = errors.New("notification failed")
)
