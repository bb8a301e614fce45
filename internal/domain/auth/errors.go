package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrLoginIDTaken       = errors.New("user_id already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user disabled or locked")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInactive = errors.New("session expired or revoked")
)
