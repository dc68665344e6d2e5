package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays cfg with environment variables. Values from the process
// environment win over the dotenv file at path; a missing file is ignored.
func parseEnv(cfg *Config, path string) error {
	file := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			file = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("read %s: %w", path, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}

	return applyEnv(cfg, lookup)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str(&cfg.APIURL, "CARPOOL_API_URL", "NEXT_PUBLIC_API_URL")
	str(&cfg.GRPCAddr, "CARPOOL_GRPC_ADDR")
	str(&cfg.LoginPath, "CARPOOL_LOGIN_PATH")
	str(&cfg.LogoutPath, "CARPOOL_LOGOUT_PATH")
	str(&cfg.RefreshPath, "CARPOOL_REFRESH_PATH")
	str(&cfg.Store, "CARPOOL_STORE")
	str(&cfg.DBPath, "CARPOOL_DB_PATH")
	str(&cfg.Passphrase, "CARPOOL_PASSPHRASE")
	str(&cfg.RedisURL, "CARPOOL_REDIS_URL")
	str(&cfg.RedisProfile, "CARPOOL_REDIS_PROFILE")
	str(&cfg.Reports.Bucket, "CARPOOL_REPORT_BUCKET")
	str(&cfg.Reports.Prefix, "CARPOOL_REPORT_PREFIX")
	str(&cfg.Reports.Region, "CARPOOL_REPORT_REGION", "AWS_REGION")
	str(&cfg.Reports.Endpoint, "CARPOOL_REPORT_ENDPOINT")
	str(&cfg.Reports.AccessKey, "CARPOOL_REPORT_ACCESS_KEY")
	str(&cfg.Reports.SecretKey, "CARPOOL_REPORT_SECRET_KEY")
	str(&cfg.MetricsAddr, "CARPOOL_METRICS_ADDR")
	str(&cfg.LogLevel, "CARPOOL_LOG_LEVEL")
	str(&cfg.LogFormat, "CARPOOL_LOG_FORMAT")

	for key, dst := range map[string]*time.Duration{
		"CARPOOL_READ_TIMEOUT":      &cfg.ReadTimeout,
		"CARPOOL_WRITE_TIMEOUT":     &cfg.WriteTimeout,
		"CARPOOL_REFRESH_TIMEOUT":   &cfg.RefreshTimeout,
		"CARPOOL_PROACTIVE_REFRESH": &cfg.ProactiveRefresh,
		"CARPOOL_SESSION_TTL":       &cfg.SessionTTL,
	} {
		if err := dur(dst, key); err != nil {
			return fmt.Errorf("env %w", err)
		}
	}
	return nil
}
