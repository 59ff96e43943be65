// Package config loads runtime configuration for the catalogkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the catalog server
//	-f string   path of the local SQLite cache
//	-k string   path of the cache encryption key file
//	-t int      per-request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "http://localhost:5001",
//	  "database_path": "catalog.db",
//	  "key_path": "catalog.db.key",
//	  "request_timeout": "10s"
//	}
//
// request_timeout accepts a duration string or integer nanoseconds.
package config
