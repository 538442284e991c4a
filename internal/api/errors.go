package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches a 401 on an authenticated call. The stored
	// session has been cleared by the time the caller sees it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNetwork wraps failures where no response was received.
	ErrNetwork = errors.New("network error")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
	// anonymous marks responses to calls made without a session, where a
	// 401 means wrong credentials rather than an expired token.
	anonymous bool
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized && !e.anonymous
}

// UserMessage maps err to the line shown on screen.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnauthorized) {
		return "Session expired. Please log in again."
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			return "Server error. Please try again later."
		}
		return "Error: " + apiErr.Message
	}
	if errors.Is(err, ErrNetwork) {
		return "Network error. Check your connection."
	}
	return "Error: " + err.Error()
}
