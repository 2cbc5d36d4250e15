package watchlist

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/domain"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
)

// maxDocumentSize bounds the accepted list size
const maxDocumentSize = 256 << 20

// Downloader fetches the consolidated list, parses it and archives the raw copy
type Downloader struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	archive *Archive
	log     *logger.Logger
	now     func() time.Time
}

// NewDownloader creates a downloader guarded by a circuit breaker
func NewDownloader(cfg config.WatchlistConfig, archive *Archive, log *logger.Logger) *Downloader {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 3
	}
	l := log.Named("watchlist_downloader")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "watchlist-download",
		Timeout: cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state changed",
				logger.StringField("breaker", name),
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()),
			)
		},
	})

	return &Downloader{
		url:     cfg.SourceURL,
		client:  &http.Client{Timeout: cfg.DownloadTimeout},
		breaker: breaker,
		archive: archive,
		log:     l,
		now:     time.Now,
	}
}

// Download fetches, parses and archives the list. The returned watchlist carries
// complete metadata for the download.
func (d *Downloader) Download(ctx context.Context) (*domain.Watchlist, error) {
	started := d.now()
	out, err := d.breaker.Execute(func() (interface{}, error) {
		return d.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("download watchlist: %w", err)
	}
	body := out.([]byte)

	wl, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(body)
	downloaded := d.now()
	wl.Metadata.DownloadDate = downloaded
	wl.Metadata.OriginalURL = d.url
	wl.Metadata.FileSize = int64(len(body))
	wl.Metadata.FileHashSHA256 = hex.EncodeToString(sum[:])

	if d.archive != nil {
		name, err := d.archive.Save(body, &wl.Metadata, downloaded)
		if err != nil {
			return nil, err
		}
		d.log.Info("watchlist archived",
			logger.StringField("file", name),
			logger.IntField("total_entries", wl.Metadata.TotalEntries),
			logger.DurationField("elapsed", downloaded.Sub(started)),
		)
	}
	return wl, nil
}

func (d *Downloader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/xml, text/xml, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}
