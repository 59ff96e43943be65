package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/catalogkeeper/internal/flagx"
	"github.com/dmitrijs2005/catalogkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Durations use
// timex.Duration so both "3h" and integer nanoseconds are accepted.
// Fields left out of the file keep their previous values.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	DatabaseDriver        string         `json:"database_driver"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	PreviousSecretKeys    []string       `json:"previous_secret_keys"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	TokenIssuer           string         `json:"token_issuer"`
	TokenAudience         string         `json:"token_audience"`
	AdminUsername         string         `json:"admin_username"`
	AdminPassword         string         `json:"admin_password"`
	AdminEmail            string         `json:"admin_email"`
	LogFormat             string         `json:"log_format"`
	ShutdownTimeout       timex.Duration `json:"shutdown_timeout"`
	S3AccessKey           string         `json:"s3_access_key"`
	S3SecretKey           string         `json:"s3_secret_key"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	S3PresignTTL          timex.Duration `json:"s3_presign_ttl"`
}

// parseJson overlays the file named by -c/-config (if any) onto config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.PreviousSecretKeys != nil {
		config.PreviousSecretKeys = c.PreviousSecretKeys
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.TokenAudience, c.TokenAudience)
	setString(&config.AdminUsername, c.AdminUsername)
	setString(&config.AdminPassword, c.AdminPassword)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.LogFormat, c.LogFormat)
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3PresignTTL.Duration != 0 {
		config.S3PresignTTL = c.S3PresignTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
