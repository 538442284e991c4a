// Package http serves the local debug endpoints of a running client.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StatusFunc reports whatever the caller wants exposed at /status. It must
// return a JSON-encodable value.
type StatusFunc func() any

type DebugServer struct {
	server *http.Server
	log    zerolog.Logger
	wg     sync.WaitGroup
}

func NewDebugServer(addr string, gatherer prometheus.Gatherer, status StatusFunc) *DebugServer {
	if addr == "" {
		addr = "localhost:9090"
	}
	return &DebugServer{
		server: &http.Server{
			Addr:    addr,
			Handler: NewHandler(gatherer, status),
		},
		log: log.With().Str("component", "debug").Logger(),
	}
}

// NewHandler builds the debug router.
func NewHandler(gatherer prometheus.Gatherer, status StatusFunc) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var v any = map[string]string{}
		if status != nil {
			v = status()
		}
		if err := json.NewEncoder(w).Encode(v); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return r
}

func (s *DebugServer) Addr() string {
	return s.server.Addr
}

func (s *DebugServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("debug server started")
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *DebugServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
