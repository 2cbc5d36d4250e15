package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banking/sanctions-screening/internal/cache"
	"github.com/banking/sanctions-screening/internal/domain"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
)

// Source names where a loaded watchlist came from
type Source string

const (
	SourceCache    Source = "cache"
	SourceArchive  Source = "archive"
	SourceDownload Source = "download"
)

// Cache stores the parsed watchlist between runs
type Cache interface {
	GetWatchlist(ctx context.Context) (*domain.Watchlist, error)
	SetWatchlist(ctx context.Context, wl *domain.Watchlist, ttl time.Duration) error
}

// Fetcher retrieves a fresh copy of the list
type Fetcher interface {
	Download(ctx context.Context) (*domain.Watchlist, error)
}

// LoadOptions selects which sources Load may use
type LoadOptions struct {
	// Offline never contacts the list publisher
	Offline bool
	// Fresh tries the publisher before any stored copy
	Fresh bool
}

// Loader resolves a watchlist from cache, archive or publisher
type Loader struct {
	cache   Cache
	archive *Archive
	fetcher Fetcher
	ttl     time.Duration
	log     *logger.Logger
}

// NewLoader creates a loader. cache and fetcher may be nil.
func NewLoader(cache Cache, archive *Archive, fetcher Fetcher, ttl time.Duration, log *logger.Logger) *Loader {
	return &Loader{
		cache:   cache,
		archive: archive,
		fetcher: fetcher,
		ttl:     ttl,
		log:     log.Named("watchlist_loader"),
	}
}

// Load returns the first watchlist any permitted source yields
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*domain.Watchlist, Source, error) {
	order := []Source{SourceCache, SourceArchive, SourceDownload}
	if opts.Fresh {
		order = []Source{SourceDownload, SourceCache, SourceArchive}
	}

	var errs []error
	for _, src := range order {
		if src == SourceDownload && opts.Offline {
			continue
		}
		wl, err := l.loadFrom(ctx, src)
		if err != nil {
			if isEmptySource(err) {
				l.log.Debug("watchlist source empty", logger.StringField("source", string(src)))
			} else {
				l.log.Warn("watchlist source unavailable",
					logger.StringField("source", string(src)),
					logger.ErrorField(err),
				)
			}
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
			continue
		}
		if wl == nil {
			continue
		}
		if src != SourceCache && l.cache != nil {
			if err := l.cache.SetWatchlist(ctx, wl, l.ttl); err != nil {
				l.log.Warn("failed to cache watchlist", logger.ErrorField(err))
			}
		}
		return wl, src, nil
	}
	if len(errs) == 0 {
		return nil, "", ErrNoCachedList
	}
	return nil, "", fmt.Errorf("load watchlist: %w", errors.Join(errs...))
}

// isEmptySource reports a source that holds nothing yet, as on a cold start
func isEmptySource(err error) bool {
	return errors.Is(err, cache.ErrCacheMiss) || errors.Is(err, ErrNoCachedList)
}

func (l *Loader) loadFrom(ctx context.Context, src Source) (*domain.Watchlist, error) {
	switch src {
	case SourceCache:
		if l.cache == nil {
			return nil, nil
		}
		return l.cache.GetWatchlist(ctx)
	case SourceArchive:
		if l.archive == nil {
			return nil, nil
		}
		return l.archive.Latest()
	case SourceDownload:
		if l.fetcher == nil {
			return nil, nil
		}
		return l.fetcher.Download(ctx)
	}
	return nil, fmt.Errorf("unknown source %q", src)
}
