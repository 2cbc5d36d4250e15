package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the screening service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Screening ScreeningConfig `mapstructure:"screening"`
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
	Roster    RosterConfig    `mapstructure:"roster"`
	Report    ReportConfig    `mapstructure:"report"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                 int           `mapstructure:"port"`
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	WriteTimeout         time.Duration `mapstructure:"write_timeout"`
	IdleTimeout          time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize       string        `mapstructure:"max_request_size"`
	MaxRequestCandidates int           `mapstructure:"max_request_candidates"`
}

// RedisConfig holds Redis configuration for the watchlist cache
type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Password          string        `mapstructure:"password"`
	DB                int           `mapstructure:"db"`
	PoolSize          int           `mapstructure:"pool_size"`
	DialTimeout       time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	WatchlistCacheTTL time.Duration `mapstructure:"watchlist_cache_ttl"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	AlertsTopic string   `mapstructure:"alerts_topic"`
	ClientID    string   `mapstructure:"client_id"`
}

// ScreeningConfig holds name-matching configuration
type ScreeningConfig struct {
	MaxNameTokens       int           `mapstructure:"max_name_tokens"`
	ParallelWorkers     int           `mapstructure:"parallel_workers"`
	MaxScreeningLatency time.Duration `mapstructure:"max_screening_latency"`
	LogMatches          bool          `mapstructure:"log_matches"`
}

// WatchlistConfig holds sanctions list acquisition configuration
type WatchlistConfig struct {
	SourceURL        string        `mapstructure:"source_url"`
	DataDir          string        `mapstructure:"data_dir"`
	DownloadTimeout  time.Duration `mapstructure:"download_timeout"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	BreakerFailures  uint32        `mapstructure:"breaker_failures"`
	BreakerOpenDelay time.Duration `mapstructure:"breaker_open_delay"`
}

// RosterConfig holds client roster configuration
type RosterConfig struct {
	ClientsDir string `mapstructure:"clients_dir"`
}

// ReportConfig holds report output configuration
type ReportConfig struct {
	ReportsDir string `mapstructure:"reports_dir"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
	Debug         bool    `mapstructure:"debug"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files.
// An explicit path takes precedence over the default search locations.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("SCREENING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sanctions-screening")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_size", "10M")
	v.SetDefault("server.max_request_candidates", 10000000)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.watchlist_cache_ttl", "24h")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.alerts_topic", "banking.sanctions.alerts")
	v.SetDefault("kafka.client_id", "sanctions-screening")

	// Screening defaults
	v.SetDefault("screening.max_name_tokens", 6)
	v.SetDefault("screening.parallel_workers", 4)
	v.SetDefault("screening.max_screening_latency", "5s")
	v.SetDefault("screening.log_matches", true)

	// Watchlist defaults
	v.SetDefault("watchlist.source_url", "https://scsanctions.un.org/resources/xml/en/consolidated.xml")
	v.SetDefault("watchlist.data_dir", "un_data")
	v.SetDefault("watchlist.download_timeout", "30s")
	v.SetDefault("watchlist.refresh_interval", "24h")
	v.SetDefault("watchlist.breaker_failures", 3)
	v.SetDefault("watchlist.breaker_open_delay", "1m")

	// Roster and report defaults
	v.SetDefault("roster.clients_dir", "clients_data")
	v.SetDefault("report.reports_dir", "reports")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "sanctions-screening")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.debug", false)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
}
