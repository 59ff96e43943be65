package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds runtime settings for the CLI.
//
// KeyPath defaults to DatabasePath + ".key" when left empty.
type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	KeyPath            string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://localhost:5001"
	c.DatabasePath = "catalog.db"
	c.KeyPath = ""
	c.RequestTimeout = 10 * time.Second
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.ServerEndpointAddr)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server_endpoint_addr must be an http(s) URL, got %q", c.ServerEndpointAddr))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.KeyPath == "" {
		cfg.KeyPath = cfg.DatabasePath + ".key"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
