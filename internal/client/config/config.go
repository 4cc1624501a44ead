package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/dmitrijs2005/udinflow/internal/filex"
)

const (
	DefaultDataDir      = "udin-data"
	DefaultDatabaseFile = "udin.db"
)

// Config holds runtime settings for the udin CLI.
type Config struct {
	APIBaseURL          string
	DataDir             string
	DatabasePath        string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration

	PaymentKeyID string
	Currency     string

	LogLevel    string
	LogFormat   string
	MetricsAddr string

	// SecurePassphrase switches the secure store from a random device key to
	// a key derived from this value.
	SecurePassphrase string

	MinFileSize int64
	MaxFileSize int64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:5000"
	c.DataDir = DefaultDataDir
	c.DatabasePath = DefaultDatabaseFile
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.PaymentKeyID = ""
	c.Currency = common.DefaultCurrency
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.MetricsAddr = ""
	c.SecurePassphrase = ""
	limits := filex.DefaultLimits()
	c.MinFileSize = limits.MinSize
	c.MaxFileSize = limits.MaxSize
}

// LoadConfig applies defaults, then the environment (optionally seeded from
// the dotenv file given by -e/-env), then the JSON file given by -c/-config,
// then flags. Later sources override earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg, args); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}

// Limits returns the file acceptance bounds.
func (c *Config) Limits() filex.Limits {
	return filex.Limits{MinSize: c.MinFileSize, MaxSize: c.MaxFileSize}
}

// DatabaseDSN resolves DatabasePath. A bare file name is placed inside
// DataDir, which is created under the working directory if needed.
func (c *Config) DatabaseDSN() (string, error) {
	if c.DatabasePath == ":memory:" || filepath.IsAbs(c.DatabasePath) || filepath.Base(c.DatabasePath) != c.DatabasePath {
		return c.DatabasePath, nil
	}
	dir, err := filex.EnsureSubdDir(c.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.DatabasePath), nil
}
