package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with screening-specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey   ContextKey = "request_id"
	TraceIDKey     ContextKey = "trace_id"
	SpanIDKey      ContextKey = "span_id"
	ScreeningIDKey ContextKey = "screening_id"
)

// NewNop returns a logger that discards everything, for tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok && spanID != "" {
		fields = append(fields, zap.String("span_id", spanID))
	}
	if screeningID, ok := ctx.Value(ScreeningIDKey).(string); ok && screeningID != "" {
		fields = append(fields, zap.String("screening_id", screeningID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithScreening returns a logger with screening run context
func (l *Logger) WithScreening(runID string) *Logger {
	return &Logger{
		Logger:      l.With(zap.String("screening_id", runID)),
		serviceName: l.serviceName,
	}
}

// WatchlistLoaded logs a watchlist that is ready for matching
func (l *Logger) WatchlistLoaded(source string, individuals, indexSize int) {
	l.Info("watchlist loaded",
		zap.String("source", source),
		zap.Int("individuals", individuals),
		zap.Int("index_size", indexSize),
	)
}

// ScreeningStarted logs the start of a screening run
func (l *Logger) ScreeningStarted(runID string, rosterRows int) {
	l.Info("screening started",
		zap.String("screening_id", runID),
		zap.Int("roster_rows", rosterRows),
	)
}

// ScreeningCompleted logs the completion of a screening run
func (l *Logger) ScreeningCompleted(runID string, clients, matches, identities int, durationMs int64) {
	l.Info("screening completed",
		zap.String("screening_id", runID),
		zap.Int("clients_screened", clients),
		zap.Int("matches", matches),
		zap.Int("suspicious_identities", identities),
		zap.Int64("duration_ms", durationMs),
	)
}

// NameSkipped logs a roster name that was too complex to expand
func (l *Logger) NameSkipped(clientSN string, tokens, limit int) {
	l.Warn("officer name skipped",
		zap.String("client_sn", clientSN),
		zap.Int("token_count", tokens),
		zap.Int("token_limit", limit),
	)
}

// MatchFound logs one piece of match evidence
func (l *Logger) MatchFound(clientSN, candidate, identityKey string) {
	l.Warn("watchlist match",
		zap.String("client_sn", clientSN),
		zap.String("matched_combo", candidate),
		zap.String("identity_key", identityKey),
	)
}

// ReportWritten logs the location of a rendered report
func (l *Logger) ReportWritten(path string, identities int) {
	l.Info("report written",
		zap.String("path", path),
		zap.Int("suspicious_identities", identities),
	)
}

// LatencyWarning logs when a stage exceeds expected latency
func (l *Logger) LatencyWarning(stage string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("stage", stage),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}
