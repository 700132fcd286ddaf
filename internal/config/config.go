package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// UserEntry maps a configured labeler to their predefined dataset file.
type UserEntry struct {
	Name    string `yaml:"name"`
	Dataset string `yaml:"dataset"`
}

// Config holds application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"` // "postgres" or "sqlite"
		URL    string `yaml:"url"`    // postgres DSN
		Path   string `yaml:"path"`   // sqlite file path
	} `yaml:"database"`

	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		SessionTTLMin int    `yaml:"session_ttl_minutes"`
		SweepSpec     string `yaml:"sweep_spec"`
	} `yaml:"auth"`

	Labeling struct {
		Mode       string `yaml:"mode"`       // emotion, aspect or triage
		Predefined bool   `yaml:"predefined"` // per-user CSV paths vs upload
	} `yaml:"labeling"`

	Users []UserEntry `yaml:"users"`
}

// SessionTTL returns the configured idle session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLMin) * time.Minute
}

// LoadConfig loads configuration from a YAML file. A .env file, if present,
// is loaded first so ${VAR} references in the config can be expanded.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = "8003"
	}

	if config.Database.Driver == "" {
		config.Database.Driver = "postgres"
	}

	if config.Database.Path == "" {
		config.Database.Path = "./data/results.db"
	}

	if config.Auth.SessionTTLMin == 0 {
		config.Auth.SessionTTLMin = 240
	}

	if config.Auth.SweepSpec == "" {
		config.Auth.SweepSpec = "@every 5m"
	}

	if config.Labeling.Mode == "" {
		config.Labeling.Mode = "emotion"
	}

	// Expand environment variables in secrets and connection strings
	config.Database.URL = os.ExpandEnv(config.Database.URL)
	config.Auth.JWTSecret = os.ExpandEnv(config.Auth.JWTSecret)

	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is not set")
	}

	return config, nil
}
