// Package config loads backend connection settings from YAML files and
// INFLUXDB_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds backend connection settings.
type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	Database      string `yaml:"database"`
	TimePrecision string `yaml:"time_precision"`
	UseSSL        bool   `yaml:"use_ssl"`

	// OpenTimeout and ReadTimeout are in seconds; the larger of the two
	// bounds the HTTP round-trip.
	OpenTimeout int `yaml:"open_timeout"`
	ReadTimeout int `yaml:"read_timeout"`

	// Retry is the number of transport-level retries.
	Retry int `yaml:"retry"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Host:          "localhost",
		Port:          8086,
		Database:      "db",
		TimePrecision: "ns",
		Retry:         3,
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. An empty path skips the file and loads defaults+env only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides fields from INFLUXDB_* variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("INFLUXDB_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("INFLUXDB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("INFLUXDB_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("INFLUXDB_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("INFLUXDB_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("INFLUXDB_TIME_PRECISION"); v != "" {
		c.TimePrecision = v
	}
}

// URL renders the backend base URL.
func (c Config) URL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// Timeout returns the effective HTTP round-trip bound.
func (c Config) Timeout() time.Duration {
	secs := c.OpenTimeout
	if c.ReadTimeout > secs {
		secs = c.ReadTimeout
	}
	if secs == 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
