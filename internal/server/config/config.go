// Package config handles configuration for the catalog server, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
)

// DevSecretKey is the built-in signing key. It is fine for local runs and
// tests only; the server warns at startup when it is still in use.
const DevSecretKey = "catalogkeeper-development-signing-key-change-me"

// MinSecretKeyLen is the shortest HMAC key accepted for HS256.
const MinSecretKeyLen = 32

// Config holds runtime settings for the catalog server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP/JSON API.
//   - DatabaseDriver / DatabaseDSN: "sqlite" (embedded, default) or "postgres".
//   - SecretKey: HMAC key for signing JWTs (HS256). PreviousSecretKeys are
//     still accepted for verification so keys can be rotated without
//     logging everybody out.
//   - TokenValidityDuration: lifetime of an issued token.
//   - TokenIssuer / TokenAudience: when non-empty, written into tokens and
//     enforced on validation.
//   - AdminUsername / AdminPassword / AdminEmail: account seeded at startup.
//   - S3*: optional object storage for product images; disabled when
//     S3Bucket is empty.
type Config struct {
	EndpointAddrHTTP      string
	DatabaseDriver        string
	DatabaseDSN           string
	SecretKey             string
	PreviousSecretKeys    []string
	TokenValidityDuration time.Duration
	TokenIssuer           string
	TokenAudience         string
	AdminUsername         string
	AdminPassword         string
	AdminEmail            string
	LogFormat             string
	ShutdownTimeout       time.Duration
	S3AccessKey           string
	S3SecretKey           string
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
	S3PresignTTL          time.Duration
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key and admin password must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":5001"
	c.DatabaseDriver = string(dbx.SQLite)
	c.DatabaseDSN = "file:catalog-server.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	c.SecretKey = DevSecretKey
	c.PreviousSecretKeys = nil
	c.TokenValidityDuration = 3 * time.Hour
	c.TokenIssuer = ""
	c.TokenAudience = ""
	c.AdminUsername = "admin"
	c.AdminPassword = "Admin123!"
	c.AdminEmail = "admin@example.com"
	c.LogFormat = "json"
	c.ShutdownTimeout = 10 * time.Second
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
	c.S3PresignTTL = 15 * time.Minute
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := dbx.ParseDialect(c.DatabaseDriver); err != nil {
		errs = append(errs, err)
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database_dsn is required"))
	}
	if len(c.SecretKey) < MinSecretKeyLen {
		errs = append(errs, fmt.Errorf("secret_key must be at least %d bytes", MinSecretKeyLen))
	}
	for i, k := range c.PreviousSecretKeys {
		if len(k) < MinSecretKeyLen {
			errs = append(errs, fmt.Errorf("previous_secret_keys[%d] must be at least %d bytes", i, MinSecretKeyLen))
		}
	}
	if c.TokenValidityDuration <= 0 {
		errs = append(errs, errors.New("token_validity_duration must be positive"))
	}
	if c.AdminUsername != "" && c.AdminPassword == "" {
		errs = append(errs, errors.New("admin_password is required when admin_username is set"))
	}

	return errors.Join(errs...)
}

// UsesDevSecret reports whether the built-in signing key is still active.
func (c *Config) UsesDevSecret() bool {
	return c.SecretKey == DevSecretKey
}

// ObjectStorageEnabled reports whether product image uploads are configured.
func (c *Config) ObjectStorageEnabled() bool {
	return c.S3Bucket != ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
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
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
