// Package config loads runtime configuration for the realmkeeper terminal
// client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. REALMKEEPER_CLIENT_* environment variables.
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-s string     base URL of the realmkeeper HTTP API
//	-f string     path of the local session database
//	-t duration   per-request timeout
//
// # JSON schema
//
// Durations accept strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "database_path": "realmkeeper.db",
//	  "request_timeout": "10s"
//	}
package config
