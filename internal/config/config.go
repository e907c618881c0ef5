// Package config provides configuration management for the autoscaler.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Atharva0045/cloud-autoscaler/pkg/duration"
)

// Duration is an alias for the shared duration.Duration type.
type Duration = duration.Duration

// Config is the complete autoscaler configuration.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	AWS      AWSConfig      `yaml:"aws"`
	Scaling  ScalingConfig  `yaml:"scaling"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Model    ModelConfig    `yaml:"model"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies the managed instance and its allowed sizes.
type InstanceConfig struct {
	ID string `yaml:"id"`
	// TypeSequence is the ordered catalog of instance types, smallest
	// first. Scaling steps one position at a time.
	TypeSequence []string `yaml:"type_sequence"`
}

// AWSConfig contains provider settings.
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SessionToken    string `yaml:"session_token,omitempty"`
	// Endpoint is a custom endpoint URL (for testing with LocalStack).
	Endpoint string `yaml:"endpoint,omitempty"`
}

// ScalingConfig contains the decision policy settings.
type ScalingConfig struct {
	// ScaleUpThreshold is predicted CPU percent above which to scale up.
	ScaleUpThreshold float64 `yaml:"scale_up_threshold"`
	// ScaleDownThreshold is predicted CPU percent below which to scale down.
	ScaleDownThreshold float64 `yaml:"scale_down_threshold"`
	// MinConfidence gates acting on a prediction.
	MinConfidence float64 `yaml:"min_confidence"`
	// Cooldown is the minimum time between two committed actions.
	Cooldown Duration `yaml:"cooldown"`
	// DryRun disables all provider mutations. Defaults to true; the system
	// never touches real infrastructure unless explicitly opted in.
	DryRun bool `yaml:"dry_run"`
	// WaitTimeout bounds stop/start transition waits.
	WaitTimeout Duration `yaml:"wait_timeout"`
	// PollInterval is the provider state polling delay during waits.
	PollInterval Duration `yaml:"poll_interval"`
}

// MetricsConfig contains the Prometheus metrics-source settings.
type MetricsConfig struct {
	// URL pins the Prometheus base URL. Empty means resolve the instance
	// IP on every fetch.
	URL string `yaml:"url,omitempty"`
	// Port is the Prometheus port on the instance.
	Port int `yaml:"port"`
	// Step is the query resolution.
	Step Duration `yaml:"step"`
	// Window is how much recent history each cycle fetches.
	Window Duration `yaml:"window"`
	// RequestTimeout bounds each query.
	RequestTimeout Duration `yaml:"request_timeout"`
	// BufferPath is where the live metric buffer CSV is persisted.
	BufferPath string `yaml:"buffer_path"`
}

// ModelConfig locates the trained artifacts.
type ModelConfig struct {
	ModelPath  string `yaml:"model_path"`
	ScalerPath string `yaml:"scaler_path"`
}

// DaemonConfig contains the scheduling daemon settings.
type DaemonConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval is the normal cycle cadence.
	Interval Duration `yaml:"interval"`
	// RetryDelay is the shortened wait after an endpoint connectivity
	// failure.
	RetryDelay Duration `yaml:"retry_delay"`
	// EndpointURL, when set, drives cycles through the HTTP control
	// surface instead of in-process.
	EndpointURL string `yaml:"endpoint_url,omitempty"`
	// RequestTimeout bounds the endpoint call.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address      string   `yaml:"address"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Instance: InstanceConfig{
			TypeSequence: []string{"t3.micro", "t3.small", "t3.medium", "t3.large"},
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Scaling: ScalingConfig{
			ScaleUpThreshold:   75,
			ScaleDownThreshold: 30,
			MinConfidence:      0.6,
			Cooldown:           Duration(10 * time.Minute),
			DryRun:             true,
			WaitTimeout:        Duration(5 * time.Minute),
			PollInterval:       Duration(5 * time.Second),
		},
		Metrics: MetricsConfig{
			Port:           9090,
			Step:           Duration(5 * time.Second),
			Window:         Duration(5 * time.Minute),
			RequestTimeout: Duration(10 * time.Second),
			BufferPath:     "data/live_buffer.csv",
		},
		Model: ModelConfig{
			ModelPath:  "artifacts/model.json",
			ScalerPath: "artifacts/scaler.json",
		},
		Daemon: DaemonConfig{
			Enabled:        true,
			Interval:       Duration(5 * time.Minute),
			RetryDelay:     Duration(30 * time.Second),
			RequestTimeout: Duration(60 * time.Second),
		},
		Server: ServerConfig{
			Address:      "0.0.0.0:8000",
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(90 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a file, applying defaults, environment
// variable expansion and overrides, and validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AUTOSCALER_INSTANCE_ID"); v != "" {
		c.Instance.ID = v
	}
	if v := os.Getenv("AUTOSCALER_TYPE_SEQUENCE"); v != "" {
		c.Instance.TypeSequence = strings.Split(v, ",")
	}
	if v := os.Getenv("AUTOSCALER_AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("AUTOSCALER_HTTP_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("AUTOSCALER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AUTOSCALER_DRY_RUN"); v != "" {
		c.Scaling.DryRun = strings.EqualFold(v, "true")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return fmt.Errorf("instance.id is required")
	}
	if len(c.Instance.TypeSequence) == 0 {
		return fmt.Errorf("instance.type_sequence is required")
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	if c.Scaling.ScaleUpThreshold <= c.Scaling.ScaleDownThreshold {
		return fmt.Errorf("scaling.scale_up_threshold must be above scale_down_threshold")
	}
	if c.Scaling.MinConfidence < 0 || c.Scaling.MinConfidence > 1 {
		return fmt.Errorf("scaling.min_confidence must be in [0, 1]")
	}
	if c.Daemon.Interval.Duration() <= 0 {
		return fmt.Errorf("daemon.interval must be positive")
	}
	if c.Daemon.RetryDelay.Duration() > c.Daemon.Interval.Duration() {
		return fmt.Errorf("daemon.retry_delay must not exceed daemon.interval")
	}
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	return nil
}
