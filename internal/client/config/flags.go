package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/flagx"
)

// parseFlags overlays command-line flags onto cfg. Arguments it does not
// know (including -c/-config) are ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the server")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local cache database file")
	fs.StringVar(&cfg.KeyPath, "k", cfg.KeyPath, "local cache key file")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := flagx.ParseKnown(fs, args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
