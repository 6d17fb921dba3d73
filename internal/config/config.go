package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"
)

type Config struct {
	ProjectID        string        `yaml:"project_id"`
	Region           string        `yaml:"region"`
	LogLevel         string        `yaml:"log_level"`
	Port             string        `yaml:"port"`
	StoreBackend     string        `yaml:"store_backend"`
	SQLitePath       string        `yaml:"sqlite_path"`
	TelemetryBaseURL string        `yaml:"telemetry_base_url"`
	TelemetryToken   string        `yaml:"telemetry_token"`
	TelemetryTimeout time.Duration `yaml:"telemetry_timeout"`
	FetchConcurrency int           `yaml:"fetch_concurrency"`
	HistoryLimit     int           `yaml:"history_limit"`
}

// New builds the configuration. When CONFIGFILE names a YAML file it is
// read first; environment variables override whatever it sets.
func New() (*Config, error) {
	cfg := &Config{}
	if path := os.Getenv("CONFIGFILE"); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}

// LoadFile reads a YAML config file without applying defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PROJECTID", &c.ProjectID)
	str("REGION", &c.Region)
	str("LOGLEVEL", &c.LogLevel)
	str("PORT", &c.Port)
	str("STOREBACKEND", &c.StoreBackend)
	str("SQLITEPATH", &c.SQLitePath)
	str("TELEMETRYBASEURL", &c.TelemetryBaseURL)
	str("TELEMETRYTOKEN", &c.TelemetryToken)
	if v := getenv("TELEMETRYTIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: TELEMETRYTIMEOUT: %w", err)
		}
		c.TelemetryTimeout = d
	}
	if err := num("FETCHCONCURRENCY", &c.FetchConcurrency); err != nil {
		return err
	}
	return num("HISTORYLIMIT", &c.HistoryLimit)
}

func (c *Config) defaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.StoreBackend == "" {
		c.StoreBackend = StoreFirestore
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/dashboards.db"
	}
	if c.TelemetryTimeout <= 0 {
		c.TelemetryTimeout = 10 * time.Second
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 8
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 100
	}
}
