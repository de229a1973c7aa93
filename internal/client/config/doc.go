// Package config loads runtime configuration for the contactbook CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment variables prefixed with CONTACTBOOK_ (only those set).
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-s string   storage driver: sqlite, postgres, redis or memory
//	-d string   database DSN (SQLite file path or Postgres URL)
//	-r string   redis address host:port
//	-l bool     simulate network latency
//	-g string   geocoder base URL
//	-v string   log level: trace, debug, info, warn, error
//	-m string   address for the Prometheus /metrics listener
//
// # JSON schema
//
// Durations accept strings like "3s" or integer nanoseconds:
//
//	{
//	  "storage_driver": "sqlite",
//	  "database_dsn": "contactbook.db",
//	  "simulate_latency": true,
//	  "geocoder_timeout": "10s",
//	  "log_level": "info"
//	}
package config
