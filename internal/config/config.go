package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = ".shoefinder"
	ConfigFileName = "config.yaml"
	CatalogDBName  = "catalog.db"
)

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config represents the application configuration
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Ranking RankingConfig `yaml:"ranking"`
	Server  ServerConfig  `yaml:"server"`
	Viewer  ViewerConfig  `yaml:"viewer"`
}

// StoreConfig selects where the catalog lives
type StoreConfig struct {
	Backend    string      `yaml:"backend"`
	SQLitePath string      `yaml:"sqlite_path,omitempty"`
	Redis      RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis backend
type RedisConfig struct {
	Addr   string `yaml:"addr,omitempty"`
	DB     int    `yaml:"db,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// RankingConfig holds ranking defaults
type RankingConfig struct {
	// TopK is the default number of similarity results
	TopK int `yaml:"top_k"`
	// Workers spreads scoring over goroutines; 0 or 1 scores sequentially
	Workers int `yaml:"workers"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is the allowed requests per second; 0 disables limiting
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// ViewerConfig configures the external image viewer.
// {path} in Command is replaced with the image path.
type ViewerConfig struct {
	Command string `yaml:"command,omitempty"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	dbPath := filepath.Join(ConfigDirName, CatalogDBName)
	if dir, err := GetConfigDir(); err == nil {
		dbPath = filepath.Join(dir, CatalogDBName)
	}

	return &Config{
		Store: StoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: dbPath,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "shoefinder:",
			},
		},
		Ranking: RankingConfig{
			TopK: 5,
		},
		Server: ServerConfig{
			Addr:  ":8080",
			Burst: 20,
		},
	}
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store.backend %q (want sqlite, redis or memory)", c.Store.Backend)
	}

	if c.Ranking.TopK < 0 {
		return fmt.Errorf("ranking.top_k must not be negative")
	}
	if c.Ranking.Workers < 0 {
		return fmt.Errorf("ranking.workers must not be negative")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		return fmt.Errorf("server.burst must be at least 1 when rate limiting is on")
	}
	return nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// Load reads the configuration from the default path
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the configuration at configPath. Fields missing from the
// file keep their defaults. If the file doesn't exist, nil is returned
// without an error.
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Save writes the configuration to the default path
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, configPath)
}

// SaveTo writes the configuration to configPath, creating its directory
func SaveTo(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if a configuration file exists at configPath
func Exists(configPath string) (bool, error) {
	_, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
