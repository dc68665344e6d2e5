package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/carpool/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations are
// timex.Duration so the file may use "15s" or integer nanoseconds. Only keys
// present in the file override the current values.
type JsonConfig struct {
	APIURL           *string         `json:"api_url"`
	GRPCAddr         *string         `json:"grpc_addr"`
	ReadTimeout      *timex.Duration `json:"read_timeout"`
	WriteTimeout     *timex.Duration `json:"write_timeout"`
	RefreshTimeout   *timex.Duration `json:"refresh_timeout"`
	ProactiveRefresh *timex.Duration `json:"proactive_refresh"`
	LoginPath        *string         `json:"login_path"`
	LogoutPath       *string         `json:"logout_path"`
	RefreshPath      *string         `json:"refresh_path"`
	Store            *string         `json:"store"`
	DBPath           *string         `json:"db_path"`
	RedisURL         *string         `json:"redis_url"`
	RedisProfile     *string         `json:"redis_profile"`
	SessionTTL       *timex.Duration `json:"session_ttl"`
	Reports          *struct {
		Region   string `json:"region"`
		Endpoint string `json:"endpoint"`
		Bucket   string `json:"bucket"`
		Prefix   string `json:"prefix"`
	} `json:"reports"`
	MetricsAddr *string `json:"metrics_addr"`
	LogLevel    *string `json:"log_level"`
	LogFormat   *string `json:"log_format"`
}

// parseJson overlays cfg with the JSON file at path. An empty path is a
// no-op. Secrets (passphrase, S3 keys) are not read from the file.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIURL, jc.APIURL)
	setString(&cfg.GRPCAddr, jc.GRPCAddr)
	setString(&cfg.LoginPath, jc.LoginPath)
	setString(&cfg.LogoutPath, jc.LogoutPath)
	setString(&cfg.RefreshPath, jc.RefreshPath)
	setString(&cfg.Store, jc.Store)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.RedisURL, jc.RedisURL)
	setString(&cfg.RedisProfile, jc.RedisProfile)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	setDuration(&cfg.ReadTimeout, jc.ReadTimeout)
	setDuration(&cfg.WriteTimeout, jc.WriteTimeout)
	setDuration(&cfg.RefreshTimeout, jc.RefreshTimeout)
	setDuration(&cfg.ProactiveRefresh, jc.ProactiveRefresh)
	setDuration(&cfg.SessionTTL, jc.SessionTTL)

	if r := jc.Reports; r != nil {
		cfg.Reports.Region = r.Region
		cfg.Reports.Endpoint = r.Endpoint
		cfg.Reports.Bucket = r.Bucket
		cfg.Reports.Prefix = r.Prefix
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
