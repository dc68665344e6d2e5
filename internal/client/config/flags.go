package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/carpool/internal/flagx"
)

var knownFlags = []string{
	"-a", "-api-url", "-grpc-addr",
	"-read-timeout", "-write-timeout", "-refresh-timeout", "-proactive-refresh",
	"-store", "-db", "-redis-url", "-profile",
	"-metrics-addr", "-log-level", "-log-format",
}

// parseFlags populates Config fields from command-line flags.
//
//	-a, -api-url string       API base URL
//	-grpc-addr string         host:port of the gRPC endpoint (optional)
//	-read-timeout duration    default timeout of GET requests
//	-write-timeout duration   default timeout of other requests
//	-refresh-timeout duration bound on one token refresh call
//	-proactive-refresh dur    refresh this long before the token expires
//	-store string             memory, sqlite or redis
//	-db string                SQLite file for the sqlite store
//	-redis-url string         redis://... for the redis store
//	-profile string           session profile name in redis
//	-metrics-addr string      serve /metrics on this address
//	-log-level string         debug, info, warn, error
//	-log-format string        console or json
//
// Only these flags are parsed; -c/-config and -env are handled elsewhere.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("carpool", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "API base URL")
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "API base URL")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC endpoint")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "GET timeout")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "write timeout")
	fs.DurationVar(&cfg.RefreshTimeout, "refresh-timeout", cfg.RefreshTimeout, "token refresh timeout")
	fs.DurationVar(&cfg.ProactiveRefresh, "proactive-refresh", cfg.ProactiveRefresh, "refresh ahead of expiry")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "token store")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "redis URL")
	fs.StringVar(&cfg.RedisProfile, "profile", cfg.RedisProfile, "session profile")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "metrics listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format")

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}
