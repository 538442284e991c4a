// Package commands is the parley command line.
package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"parley/internal/api"
	"parley/internal/auth"
	"parley/internal/config"
	"parley/internal/metrics"
	"parley/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in, run `parley login` first")
	ErrSessionExpired = errors.New("session expired, run `parley login` again")
)

// Store keeps the session and the upload cache between runs.
type Store interface {
	auth.Store
	UpsertUpload(u storage.Upload) error
	GetUpload(hash string) (storage.Upload, error)
}

// Env is the outside world of a command run.
type Env struct {
	In  io.Reader
	Out io.Writer
	// OpenStore opens the local store. Defaults to the bbolt file named in
	// the configuration.
	OpenStore func(cfg *config.Config) (Store, error)
	// Now defaults to time.Now.
	Now func() time.Time
}

func (e *Env) setDefaults() {
	if e.In == nil {
		e.In = os.Stdin
	}
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.OpenStore == nil {
		e.OpenStore = func(cfg *config.Config) (Store, error) {
			return storage.NewBoltStorage(cfg.DBFile)
		}
	}
	if e.Now == nil {
		e.Now = time.Now
	}
}

type app struct {
	cfg      *config.Config
	env      Env
	in       *bufio.Reader
	store    Store
	session  *auth.Session
	client   *api.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	log      zerolog.Logger

	// cancel stops the running command when the server rejects the session.
	cancel   context.CancelFunc
	rejected atomic.Bool
}

func newApp(ctx context.Context, cfg *config.Config, env Env) (*app, error) {
	store, err := env.OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	session, err := auth.NewSession(store)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	a := &app{
		cfg:      cfg,
		env:      env,
		in:       bufio.NewReader(env.In),
		store:    store,
		session:  session,
		registry: registry,
		metrics:  metrics.New(registry),
		log:      log.With().Str("component", "cli").Logger(),
		cancel:   func() {},
	}
	a.client = api.New(ctx, api.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
		Rate:    cfg.RequestRate,
	}, session, api.WithMetrics(a.metrics), api.OnUnauthorized(a.unauthorized))
	return a, nil
}

func (a *app) unauthorized() {
	a.log.Warn().Msg("server rejected the session")
	a.rejected.Store(true)
	a.cancel()
}

func (a *app) close() {
	closeStore(a.store)
}

func closeStore(s Store) {
	if c, ok := s.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}
}

// requireLogin fails early when there is no usable token.
func (a *app) requireLogin() error {
	if !a.session.LoggedIn() {
		return ErrNotLoggedIn
	}
	if a.session.Expired(a.env.Now()) {
		if err := a.session.Clear(); err != nil {
			a.log.Error().Err(err).Msg("failed to clear expired session")
		}
		return ErrSessionExpired
	}
	return nil
}

func (a *app) self() string {
	return a.session.User().Email
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.env.Out, format, args...)
}

// readLine returns the next input line without its line break. io.EOF is
// returned only when nothing was read.
func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) prompt(label string) (string, error) {
	a.printf("%s", label)
	line, err := a.readLine()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	return line, err
}
