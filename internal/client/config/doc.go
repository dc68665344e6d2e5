// Package config loads runtime configuration for the carpool CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: CARPOOL_* variables (CARPOOL_API_URL falls back to
//     NEXT_PUBLIC_API_URL), then a dotenv file (.env, or -env path).
//     Process variables win over the file.
//  3. Optional JSON file selected with -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// The result is validated with go-playground/validator before it is returned.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "api_url": "https://carpool.example.org/api",
//	  "read_timeout": "10s",
//	  "write_timeout": "30s",
//	  "store": "sqlite",
//	  "db_path": "carpool.db",
//	  "reports": {"region": "eu-central-1", "bucket": "carpool-errors"}
//	}
//
// Secrets (CARPOOL_PASSPHRASE, CARPOOL_REPORT_ACCESS_KEY,
// CARPOOL_REPORT_SECRET_KEY) are only read from the environment.
package config
