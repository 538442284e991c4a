// Package auth holds the local login state: the bearer token and the
// cached profile of the signed-in user.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"parley/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNoSession = errors.New("not logged in")

// Store persists the identity between runs.
type Store interface {
	// Load returns models.ErrNotFound when nothing is stored.
	Load() (models.Identity, error)
	Save(id models.Identity) error
	Clear() error
}

// Claims are the fields the backend puts into its tokens.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is the process-wide login state. Reads are served from memory,
// writes go through to the store.
type Session struct {
	store Store
	log   zerolog.Logger

	mux sync.RWMutex
	cur models.Identity
}

// NewSession restores the identity kept in store, if any.
func NewSession(store Store) (*Session, error) {
	s := &Session{
		store: store,
		log:   log.With().Str("component", "auth").Logger(),
	}
	id, err := store.Load()
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load session: %w", err)
	default:
		s.cur = id
	}
	return s, nil
}

func (s *Session) Get() models.Identity {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.cur
}

func (s *Session) Set(id models.Identity) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.store.Save(id); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.cur = id
	return nil
}

// UpdateUser applies f to the cached profile and persists the result.
func (s *Session) UpdateUser(f func(u *models.User)) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.cur.Token == "" {
		return ErrNoSession
	}
	id := s.cur
	f(&id.User)
	if err := s.store.Save(id); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.cur = id
	return nil
}

// Clear forgets the identity. The in-memory copy is dropped even if the
// store fails.
func (s *Session) Clear() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.cur = models.Identity{}
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.log.Debug().Msg("session cleared")
	return nil
}

func (s *Session) Token() string {
	return s.Get().Token
}

func (s *Session) User() models.User {
	return s.Get().User
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Claims decodes the token payload without verifying its signature; the
// signing key lives on the server only.
func (s *Session) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoSession
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token is missing, unreadable or past its
// expiry at now. Tokens without an expiry never expire.
func (s *Session) Expired(now time.Time) bool {
	claims, err := s.Claims()
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
