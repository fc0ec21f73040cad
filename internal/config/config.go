package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	App     AppConfig     `yaml:"app"`
	Logging LoggingConfig `yaml:"logging"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Tools   ToolsConfig   `yaml:"tools"`
	History HistoryConfig `yaml:"history"`
	Queue   QueueConfig   `yaml:"queue"`
	Status  StatusConfig  `yaml:"status"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// FetchConfig holds the batch run configuration
type FetchConfig struct {
	OutputDir       string        `yaml:"output_dir"`
	OutcomeLog      string        `yaml:"outcome_log"` // default: <output_dir>/outcomes.tsv
	Workers         int           `yaml:"workers"`     // 0 means number of CPUs
	ToolTimeout     time.Duration `yaml:"tool_timeout"`
	SkipExisting    bool          `yaml:"skip_existing"`
	VideoFormat     string        `yaml:"video_format"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ToolsConfig holds paths to the external tool binaries
type ToolsConfig struct {
	Downloader string `yaml:"downloader"`
	Transcoder string `yaml:"transcoder"`
}

// HistoryConfig holds the optional PostgreSQL run-history configuration
type HistoryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// QueueConfig holds RabbitMQ connection and queue configuration for queue mode
type QueueConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	VHost         string        `yaml:"vhost"`
	Exchange      string        `yaml:"exchange"`
	ExchangeType  string        `yaml:"exchange_type"`
	Queue         string        `yaml:"queue"`
	RoutingKey    string        `yaml:"routing_key"`
	PrefetchCount int           `yaml:"prefetch_count"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// StatusConfig holds the optional HTTP progress endpoint configuration
type StatusConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "clipfetch",
			Version: "dev",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Fetch: FetchConfig{
			OutputDir:       "./data",
			ToolTimeout:     5 * time.Minute,
			SkipExisting:    true,
			VideoFormat:     "mp4",
			ShutdownTimeout: 30 * time.Second,
		},
		Tools: ToolsConfig{
			Downloader: "yt-dlp",
			Transcoder: "ffmpeg",
		},
		Queue: QueueConfig{
			ExchangeType:  "direct",
			PrefetchCount: 8,
			RetryAttempts: 3,
			RetryInterval: 2 * time.Second,
			Heartbeat:     10 * time.Second,
		},
		Status: StatusConfig{
			Port: 8080,
		},
	}
}

// Load reads and parses the configuration file on top of the defaults.
func Load(configPath string) (*Config, error) {
	config := Default()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks the configuration shared by both run modes
func (c *Config) Validate() error {
	if c.Fetch.OutputDir == "" {
		return fmt.Errorf("fetch output_dir is required")
	}

	if c.Fetch.Workers < 0 {
		return fmt.Errorf("fetch workers must not be negative")
	}

	if c.Fetch.ToolTimeout < 0 {
		return fmt.Errorf("fetch tool_timeout must not be negative")
	}

	if c.Fetch.VideoFormat == "" {
		return fmt.Errorf("fetch video_format is required")
	}

	if c.Tools.Downloader == "" {
		return fmt.Errorf("tools downloader is required")
	}

	if c.Tools.Transcoder == "" {
		return fmt.Errorf("tools transcoder is required")
	}

	if c.History.Enabled {
		if c.History.Host == "" {
			return fmt.Errorf("history host is required when history is enabled")
		}
		if c.History.Port < MinPort || c.History.Port > MaxPort {
			return fmt.Errorf("invalid history port: %d (must be between %d and %d)", c.History.Port, MinPort, MaxPort)
		}
		if c.History.Database == "" {
			return fmt.Errorf("history database is required when history is enabled")
		}
	}

	if c.Status.Enabled {
		if c.Status.Port < MinPort || c.Status.Port > MaxPort {
			return fmt.Errorf("invalid status port: %d (must be between %d and %d)", c.Status.Port, MinPort, MaxPort)
		}
	}

	return nil
}

// ValidateQueue checks the additional configuration required in queue mode
func (c *Config) ValidateQueue() error {
	if c.Queue.Host == "" {
		return fmt.Errorf("queue host is required")
	}

	if c.Queue.Port < MinPort || c.Queue.Port > MaxPort {
		return fmt.Errorf("invalid queue port: %d (must be between %d and %d)", c.Queue.Port, MinPort, MaxPort)
	}

	if c.Queue.Exchange == "" {
		return fmt.Errorf("queue exchange is required")
	}

	if c.Queue.Queue == "" {
		return fmt.Errorf("queue name is required")
	}

	return nil
}
