package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork wraps transport failures reaching the auth endpoints.
	ErrNetwork = errors.New("network error")
	// ErrMissingToken is returned when a 2xx auth response has no accessToken.
	ErrMissingToken = errors.New("response missing access token")
	// ErrClosed is returned by operations issued after Close.
	ErrClosed = errors.New("session manager closed")
)

// AuthError 表示伺服器拒絕驗證請求，Message 為伺服器原文。
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth request failed with status %d", e.Status)
}
