package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the record store configuration
type Config struct {
	DBName      string        `yaml:"db_name"`
	DataDir     string        `yaml:"data_dir"`
	InMemory    bool          `yaml:"in_memory"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
	Logging     Logging       `yaml:"logging"`
	Security    Security      `yaml:"security"`
}

// Logging contains logging configuration
type Logging struct {
	Level   string `yaml:"level"`
	NoColor bool   `yaml:"no_color"`
}

// Security contains payload encryption configuration
type Security struct {
	// PayloadKey is a hex encoded 32 byte key. When set, payloads are
	// encrypted at rest.
	PayloadKey string `yaml:"payload_key,omitempty"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		DBName:      "recstore",
		DataDir:     "./data",
		InMemory:    false,
		OpenTimeout: time.Second,
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load loads configuration from the specified path. Fields missing from the
// file keep their default values.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// Save saves the configuration to the specified path with secure permissions
func Save(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := config.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func (c *Config) Validate() error {
	if c.DBName == "" {
		return errors.New("db_name is required")
	}
	if !c.InMemory && c.DataDir == "" {
		return errors.New("data_dir is required unless in_memory is set")
	}
	if c.OpenTimeout < 0 {
		return errors.New("open_timeout must not be negative")
	}
	if c.Security.PayloadKey != "" {
		if _, err := c.PayloadKey(); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database file path.
func (c *Config) Path() string {
	return filepath.Join(c.DataDir, c.DBName+".db")
}

// PayloadKey decodes the payload key. It returns nil when none is set.
func (c *Config) PayloadKey() ([]byte, error) {
	if c.Security.PayloadKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Security.PayloadKey)
	if err != nil {
		return nil, fmt.Errorf("payload_key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("payload_key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
