package domain

import "time"

// Config holds the complete Shrike configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines infrastructure selection
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Validation behaviour
	Engine  EngineConfig  `json:"engine"`
	Scoring ScoringConfig `json:"scoring"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// EngineConfig holds tunables for rule evaluation.
type EngineConfig struct {
	// AmountTolerance is the absolute currency tolerance used by the
	// arithmetic rules and the numeric field comparator. Absolute, not a
	// percentage: currency rounding error is additive.
	AmountTolerance float64 `json:"amountTolerance"`

	// ConfidenceThreshold is the minimum per-field extraction confidence
	// below which the anomaly rule raises a WARN.
	ConfidenceThreshold float64 `json:"confidenceThreshold"`

	// SubmissionWindowSecs and SubmissionBurst drive the submission-burst
	// anomaly: more than SubmissionBurst validation attempts for the same
	// vendor within the window raises a WARN.
	SubmissionWindowSecs int `json:"submissionWindowSecs"`
	SubmissionBurst      int `json:"submissionBurst"`

	// MaxWorkers bounds concurrent rule evaluation.
	MaxWorkers int `json:"maxWorkers"`
}

// ScoringConfig holds the verdict thresholds. These are configuration, not
// constants, so deployments can tune business risk tolerance.
type ScoringConfig struct {
	// FailBelow: overall status is FAIL when score < FailBelow.
	FailBelow float64 `json:"failBelow"`
	// WarnBelow: overall status is at best WARN when score < WarnBelow.
	WarnBelow float64 `json:"warnBelow"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-process channels + LRU cache.
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis.
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for the Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./shrike.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Engine: EngineConfig{
			AmountTolerance:      0.01,
			ConfidenceThreshold:  0.6,
			SubmissionWindowSecs: 3600,
			SubmissionBurst:      20,
			MaxWorkers:           16,
		},
		Scoring: ScoringConfig{
			FailBelow: 60,
			WarnBelow: 90,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "shrike",
		},
	}
}

// ProConfig returns a configuration for the Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "shrike",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
