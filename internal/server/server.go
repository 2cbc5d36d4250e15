package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/banking/sanctions-screening/internal/cache"
	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/domain"
	"github.com/banking/sanctions-screening/internal/events"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
	"github.com/banking/sanctions-screening/internal/screening"
)

// Screener runs a roster against a prepared watchlist
type Screener interface {
	ScreenPrepared(ctx context.Context, clients []domain.ClientRecord, pw *screening.PreparedWatchlist) (*domain.ScreeningRun, error)
}

// DefaultMaxRequestCandidates caps the candidate strings one request may generate
const DefaultMaxRequestCandidates = 10_000_000

// budgetEstimator is implemented by screeners that can price a roster before running it
type budgetEstimator interface {
	CandidateBudget(clients []domain.ClientRecord) int
}

// CacheStatus reports when the shared watchlist cache was last written
type CacheStatus interface {
	GetLastUpdate(ctx context.Context) (time.Time, error)
}

// statsProvider is implemented by screeners that track run statistics
type statsProvider interface {
	GetScreeningCount() int64
	GetAverageLatency() float64
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status       string  `json:"status"`
	Screenings   int64   `json:"screenings"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// ScreeningRequest is the body of POST /api/v1/screenings.
// A request is capped at 50000 clients.
type ScreeningRequest struct {
	Clients []domain.ClientRecord `json:"clients" validate:"required,min=1,max=50000"`
}

// requestValidator adapts go-playground/validator to echo, reporting json field names
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i interface{}) error {
	if err := rv.v.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return echo.NewHTTPError(http.StatusBadRequest, fe.Field()+" failed "+fe.Tag()+" validation")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// WatchlistResponse describes the loaded watchlist
type WatchlistResponse struct {
	Metadata       domain.WatchlistMetadata `json:"metadata"`
	Source         string                   `json:"source"`
	IndexSize      int                      `json:"index_size"`
	LoadedAt       time.Time                `json:"loaded_at"`
	CacheUpdatedAt *time.Time               `json:"cache_updated_at,omitempty"`
}

// Handler serves screening requests against the currently loaded watchlist
type Handler struct {
	screener      Screener
	publisher     events.AlertPublisher
	cacheStatus   CacheStatus
	maxCandidates int
	log           *logger.Logger

	mu       sync.RWMutex
	current  *screening.PreparedWatchlist
	source   string
	loadedAt time.Time
}

// NewHandler creates a handler with no watchlist loaded
func NewHandler(screener Screener, publisher events.AlertPublisher, log *logger.Logger) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{
		screener:      screener,
		publisher:     publisher,
		maxCandidates: DefaultMaxRequestCandidates,
		log:           log.Named("http"),
	}
}

// SetCandidateBudget changes the per-request candidate cap. Zero or less keeps the default.
func (h *Handler) SetCandidateBudget(n int) {
	if n > 0 {
		h.maxCandidates = n
	}
}

// SetCacheStatus reports cache freshness on the watchlist route
func (h *Handler) SetCacheStatus(cs CacheStatus) {
	h.cacheStatus = cs
}

// SetWatchlist swaps in a newly prepared watchlist
func (h *Handler) SetWatchlist(pw *screening.PreparedWatchlist, source string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = pw
	h.source = source
	h.loadedAt = time.Now().UTC()
}

func (h *Handler) watchlist() (*screening.PreparedWatchlist, string, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current, h.source, h.loadedAt
}

// New builds the echo instance with middleware and routes.
// When gatherer is non-nil its metrics are served on /metrics.
func New(cfg *config.Config, h *Handler, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(h.log))
	e.Use(middleware.Secure())
	if cfg.Server.MaxRequestSize != "" {
		e.Use(middleware.BodyLimit(cfg.Server.MaxRequestSize))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	h.Register(e)
	return e
}

// Register mounts the handler routes
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.health)
	v1 := e.Group("/api/v1")
	v1.GET("/watchlist", h.getWatchlist)
	v1.POST("/screenings", h.createScreening)
}

func (h *Handler) health(c echo.Context) error {
	pw, _, _ := h.watchlist()
	resp := HealthResponse{Status: "ok"}
	if pw == nil {
		resp.Status = "degraded"
	}
	if sp, ok := h.screener.(statsProvider); ok {
		resp.Screenings = sp.GetScreeningCount()
		resp.AvgLatencyMs = sp.GetAverageLatency()
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) getWatchlist(c echo.Context) error {
	pw, source, loadedAt := h.watchlist()
	if pw == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "watchlist not loaded")
	}
	resp := WatchlistResponse{
		Metadata:  pw.Watchlist.Metadata,
		Source:    source,
		IndexSize: pw.Index.Len(),
		LoadedAt:  loadedAt,
	}
	if h.cacheStatus != nil {
		updated, err := h.cacheStatus.GetLastUpdate(c.Request().Context())
		switch {
		case err == nil:
			resp.CacheUpdatedAt = &updated
		case !errors.Is(err, cache.ErrCacheMiss):
			h.log.Warn("failed to read cache freshness", logger.ErrorField(err))
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) createScreening(c echo.Context) error {
	var req ScreeningRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if est, ok := h.screener.(budgetEstimator); ok {
		if n := est.CandidateBudget(req.Clients); n > h.maxCandidates {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request would generate %d name candidates, limit is %d", n, h.maxCandidates))
		}
	}

	pw, _, _ := h.watchlist()
	if pw == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "watchlist not loaded")
	}

	ctx := context.WithValue(c.Request().Context(), logger.RequestIDKey, c.Response().Header().Get(echo.HeaderXRequestID))
	log := h.log.WithContext(ctx)

	run, err := h.screener.ScreenPrepared(ctx, req.Clients, pw)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "screening cancelled")
		}
		log.Error("screening failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "screening failed")
	}

	if err := h.publisher.PublishRun(ctx, run); err != nil {
		// Alert delivery failures do not fail the request
		log.Warn("failed to publish alerts", logger.ErrorField(err))
	}

	return c.JSON(http.StatusOK, run)
}

// requestLogger writes one zap entry per request
func requestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				logger.DurationField("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, logger.ErrorField(v.Error))
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
