// Package config loads runtime configuration for the udin CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. UDIN_* environment variables, optionally seeded from a dotenv file
//     selected via -e or -env (./.env when present).
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-d string   local database path
//	-i int      online status check interval (seconds)
//	-l string   log level (debug, info, warn, error)
//	-m string   metrics listen address, e.g. :9100
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "api_base_url": "http://localhost:5000",
//	  "database_path": "udin.db",
//	  "request_timeout": "30s",
//	  "online_check_interval": "3s",
//	  "log_level": "debug"
//	}
package config
