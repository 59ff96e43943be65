package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":5001")
//	-D string   database driver: sqlite | postgres
//	-d string   database DSN
//	-s string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-i string   token issuer
//	-u string   token audience
//	-A string   admin username
//	-P string   admin password
//	-l string   log format: json | text
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//
// Unknown arguments (including -c/-config) are ignored.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver (sqlite|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	validity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")

	fs.StringVar(&config.TokenIssuer, "i", config.TokenIssuer, "token issuer")
	fs.StringVar(&config.TokenAudience, "u", config.TokenAudience, "token audience")
	fs.StringVar(&config.AdminUsername, "A", config.AdminUsername, "seeded admin username")
	fs.StringVar(&config.AdminPassword, "P", config.AdminPassword, "seeded admin password")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json|text)")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := flagx.ParseKnown(fs, args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.TokenValidityDuration = time.Duration(*validity) * time.Minute
		}
	})
	return nil
}
