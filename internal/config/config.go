package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Scoring   ScoringConfig   `yaml:"scoring" envconfig:"SCORING"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration for the API
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// PipelineConfig contains the churn analysis configuration. The cutoff
// date and inactivity threshold are configuration, not data: the churn
// label compares each customer's last order date against them.
type PipelineConfig struct {
	// CutoffDate is the analysis cutoff in YYYY-MM-DD form. Empty means
	// "use the latest order date observed in the input", matching how the
	// training snapshots were produced.
	CutoffDate string `yaml:"cutoff_date" envconfig:"CUTOFF_DATE"`
	// InactivityThresholdDays is the number of days without a purchase
	// after which a customer counts as churned.
	InactivityThresholdDays int `yaml:"inactivity_threshold_days" envconfig:"INACTIVITY_THRESHOLD_DAYS" default:"90" validate:"min=1"`
	// TopProducts is the row count of the top-products report.
	TopProducts int `yaml:"top_products" envconfig:"TOP_PRODUCTS" default:"10" validate:"min=1"`
	// RFMSegments is the number of quantile buckets per RFM dimension.
	RFMSegments int `yaml:"rfm_segments" envconfig:"RFM_SEGMENTS" default:"4" validate:"min=2,max=10"`
}

// ScoringConfig contains scoring interface configuration
type ScoringConfig struct {
	// ArtifactFile is the serialized pipeline artifact (fitted
	// transformation + classifier) loaded once at process start.
	ArtifactFile string `yaml:"artifact_file" envconfig:"ARTIFACT_FILE" default:"models/churn_pipe.json"`
	// Threshold is the decision threshold for the binary churn label
	// reported alongside the probability.
	Threshold float64 `yaml:"threshold" envconfig:"THRESHOLD" default:"0.5" validate:"gt=0,lt=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	ModelsDir  string `yaml:"models_dir" envconfig:"MODELS_DIR" default:"models"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// envPrefix is the prefix for all environment variable overrides.
const envPrefix = "CHURN"

// configFileName is the default config file name, looked up in the
// working directory.
const configFileName = "churnpulse.yml"

// Load loads configuration from the optional YAML file and environment
// variables (environment takes precedence), then validates the result.
func Load() (*Config, error) {
	return LoadFrom(configFileName)
}

// LoadFrom loads configuration from the given YAML file path, if it
// exists, with environment overrides applied on top.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
	}

	// Environment overrides; envconfig also fills defaults for anything
	// the file left unset.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks structural config constraints and the cutoff date format.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	if c.Pipeline.CutoffDate != "" {
		if _, err := time.Parse("2006-01-02", c.Pipeline.CutoffDate); err != nil {
			return fmt.Errorf("pipeline.cutoff_date %q is not YYYY-MM-DD: %w", c.Pipeline.CutoffDate, err)
		}
	}
	return nil
}

// CutoffTime returns the configured cutoff date, or the zero time when
// the cutoff should fall back to the latest observed order date.
func (c *Config) CutoffTime() time.Time {
	if c.Pipeline.CutoffDate == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", c.Pipeline.CutoffDate)
	return t
}
