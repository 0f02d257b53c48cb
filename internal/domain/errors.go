package domain

import "errors"

// Sentinel errors for the business outcomes the API reports to callers.
// Repositories and services wrap or return these directly; handlers map
// them to HTTP status codes. Anything else is treated as an internal error.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	ErrActivityNotFound  = errors.New("activity not found")
	ErrDuplicateActivity = errors.New("activity name already exists")

	ErrAlreadyRegistered = errors.New("already signed up for this activity")
	ErrActivityFull      = errors.New("activity is full")
	ErrNotRegistered     = errors.New("not signed up for this activity")

	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrUnknownSubject = errors.New("token subject does not match a known user")
)
