package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	GitHub   GitHubConfig   `yaml:"github" mapstructure:"github"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Circuit  CircuitConfig  `yaml:"circuit" mapstructure:"circuit"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// GitHubConfig configures the hosting API client.
type GitHubConfig struct {
	Token               string  `yaml:"token" mapstructure:"token"`
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond   float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxContributorPages int     `yaml:"max_contributor_pages" mapstructure:"max_contributor_pages"`
	PageSize            int     `yaml:"page_size" mapstructure:"page_size"`
}

// RegistryConfig configures the npm registry client.
type RegistryConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SnapshotConfig configures local repository snapshots.
type SnapshotConfig struct {
	Root             string `yaml:"root" mapstructure:"root"`
	CloneTimeoutSecs int    `yaml:"clone_timeout_secs" mapstructure:"clone_timeout_secs"`
}

// ScoringConfig configures the metric aggregator.
type ScoringConfig struct {
	TaskTimeoutSecs int `yaml:"task_timeout_secs" mapstructure:"task_timeout_secs"`
}

// RetryConfig configures retries of outbound calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the per-host circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// IngestConfig configures the package ingestion gate.
type IngestConfig struct {
	Endpoint  string  `yaml:"endpoint" mapstructure:"endpoint"`
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// TaskTimeout returns the per-calculator timeout.
func (c ScoringConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSecs) * time.Second
}

// CloneTimeout returns the snapshot fetch timeout.
func (c SnapshotConfig) CloneTimeout() time.Duration {
	return time.Duration(c.CloneTimeoutSecs) * time.Second
}

// ResetTimeout returns the initial open interval of a tripped breaker.
func (c CircuitConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NETSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for existing deployments.
	_ = v.BindEnv("github.token", "NETSCORE_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("log.level", "NETSCORE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.file", "NETSCORE_LOG_FILE", "LOG_FILE")

	// Defaults
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.requests_per_second", 10.0)
	v.SetDefault("github.max_contributor_pages", 50)
	v.SetDefault("github.page_size", 100)
	v.SetDefault("registry.base_url", "https://registry.npmjs.org")
	v.SetDefault("snapshot.root", filepath.Join(os.TempDir(), "netscore", "snapshots"))
	v.SetDefault("snapshot.clone_timeout_secs", 120)
	v.SetDefault("scoring.task_timeout_secs", 45)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("ingest.endpoint", "")
	v.SetDefault("ingest.threshold", 0.5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode: "score",
// "serve" or "ingest".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "score":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "ingest":
		if c.Ingest.Endpoint == "" {
			problems = append(problems, "ingest.endpoint is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.GitHub.RequestsPerSecond <= 0 {
		problems = append(problems, "github.requests_per_second must be > 0")
	}
	if c.GitHub.MaxContributorPages <= 0 {
		problems = append(problems, "github.max_contributor_pages must be > 0")
	}
	if c.GitHub.PageSize < 1 || c.GitHub.PageSize > 100 {
		problems = append(problems, "github.page_size must be between 1 and 100")
	}
	if c.Snapshot.Root == "" {
		problems = append(problems, "snapshot.root is required")
	}
	if c.Snapshot.CloneTimeoutSecs <= 0 {
		problems = append(problems, "snapshot.clone_timeout_secs must be > 0")
	}
	if c.Scoring.TaskTimeoutSecs <= 0 {
		problems = append(problems, "scoring.task_timeout_secs must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		problems = append(problems, "retry.max_attempts must be > 0")
	}
	if c.Circuit.FailureThreshold <= 0 {
		problems = append(problems, "circuit.failure_threshold must be > 0")
	}
	if c.Ingest.Threshold < 0 || c.Ingest.Threshold > 1 {
		problems = append(problems, "ingest.threshold must be between 0 and 1")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: validation failed for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger. Besides zap level names,
// the numeric levels 0 (silent), 1 (info) and 2 (debug) are accepted.
func InitLogger(cfg LogConfig) error {
	levelName := strings.TrimSpace(cfg.Level)
	switch levelName {
	case "0":
		zap.ReplaceGlobals(zap.NewNop())
		return nil
	case "1", "":
		levelName = "info"
	case "2":
		levelName = "debug"
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
