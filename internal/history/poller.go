package history

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultPollInterval = 30 * time.Second

// Poll calls fetch right away and then every interval until ctx is done.
// Errors are logged and polling continues.
func Poll(ctx context.Context, interval time.Duration, fetch func(ctx context.Context) error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := log.With().Str("component", "poller").Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fetch(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("poll failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
