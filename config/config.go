// Package config loads settings for the kvs command from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kjk/kvs/backup"
	"github.com/kjk/kvs/kvs"
	"gopkg.in/yaml.v3"
)

const (
	EngineLog     = "log"
	EngineLevelDB = "leveldb"
)

// StoreConfig describes the store to open
type StoreConfig struct {
	Path   string `yaml:"path"`
	Engine string `yaml:"engine"`
	NoSync bool   `yaml:"no_sync"`
}

// LoggingConfig describes where logs go
type LoggingConfig struct {
	Dir     string `yaml:"dir"`
	Verbose bool   `yaml:"verbose"`
}

// RemoteConfig describes S3-compatible storage for backup archives
type RemoteConfig struct {
	Endpoint string `yaml:"endpoint"`
	Access   string `yaml:"access"`
	Secret   string `yaml:"secret"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Insecure bool   `yaml:"insecure"`
}

// Config is the complete configuration of the kvs command
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Remote  RemoteConfig  `yaml:"remote"`
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// LoadConfig loads configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = kvs.DefaultPath
	}
	if cfg.Store.Engine == "" {
		cfg.Store.Engine = EngineLog
	}
}

// Validate checks the configuration. Remote settings are only checked
// when a command needs them, see RemoteConfig.Backup.
func (c *Config) Validate() error {
	switch c.Store.Engine {
	case EngineLog, EngineLevelDB:
	default:
		return fmt.Errorf("unknown engine '%s', must be '%s' or '%s'", c.Store.Engine, EngineLog, EngineLevelDB)
	}
	if c.Store.Path == "" {
		return errors.New("store path is empty")
	}
	return nil
}

// Backup converts to the config used by backup.NewRemote
func (c *RemoteConfig) Backup() *backup.RemoteConfig {
	return &backup.RemoteConfig{
		Endpoint: c.Endpoint,
		Access:   c.Access,
		Secret:   c.Secret,
		Bucket:   c.Bucket,
		Region:   c.Region,
		Insecure: c.Insecure,
	}
}
