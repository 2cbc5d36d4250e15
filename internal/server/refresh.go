package server

import (
	"context"
	"time"

	"github.com/banking/sanctions-screening/internal/pkg/logger"
	"github.com/banking/sanctions-screening/internal/screening"
)

// LoadFunc loads and prepares a watchlist, reporting where it came from
type LoadFunc func(ctx context.Context) (*screening.PreparedWatchlist, string, error)

// RunRefresh reloads the watchlist every interval until ctx is done.
// A failed reload keeps the current watchlist in service.
func (h *Handler) RunRefresh(ctx context.Context, interval time.Duration, load LoadFunc) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pw, source, err := load(ctx)
			if err != nil {
				h.log.Warn("watchlist refresh failed", logger.ErrorField(err))
				continue
			}
			h.SetWatchlist(pw, source)
		}
	}
}
