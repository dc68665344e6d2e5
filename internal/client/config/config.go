package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/carpool/internal/client/auth"
	"github.com/dmitrijs2005/carpool/internal/client/reporting"
	"github.com/dmitrijs2005/carpool/internal/flagx"
	"github.com/go-playground/validator/v10"
)

// Token store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// ErrInvalid wraps every validation failure returned by LoadConfig.
var ErrInvalid = errors.New("invalid configuration")

// Config holds runtime settings for the carpool CLI.
type Config struct {
	APIURL   string `validate:"required,url"`
	GRPCAddr string

	ReadTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout   time.Duration `validate:"gt=0"`
	RefreshTimeout time.Duration `validate:"gt=0"`
	// ProactiveRefresh refreshes tokens this long before they expire; 0 disables it
	ProactiveRefresh time.Duration `validate:"gte=0"`

	LoginPath   string `validate:"required,startswith=/"`
	LogoutPath  string `validate:"required,startswith=/"`
	RefreshPath string `validate:"required,startswith=/"`

	Store        string `validate:"oneof=memory sqlite redis"`
	DBPath       string `validate:"required_if=Store sqlite"`
	Passphrase   string
	RedisURL     string `validate:"required_if=Store redis"`
	RedisProfile string
	SessionTTL   time.Duration `validate:"gte=0"`

	Reports reporting.S3Config

	MetricsAddr string
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFormat   string `validate:"oneof=console json"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://localhost:3001/api"
	c.ReadTimeout = 10 * time.Second
	c.WriteTimeout = 30 * time.Second
	c.RefreshTimeout = auth.DefaultRefreshTimeout
	c.LoginPath = "/auth/login"
	c.LogoutPath = "/auth/logout"
	c.RefreshPath = auth.DefaultRefreshPath
	c.Store = StoreSQLite
	c.DBPath = "carpool.db"
	c.RedisProfile = "default"
	c.LogLevel = "info"
	c.LogFormat = "console"
}

// Validate checks c with the struct tags above.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalid, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Reports.Bucket != "" && c.Reports.Region == "" {
		return fmt.Errorf("%w: report bucket needs a region", ErrInvalid)
	}
	return nil
}

// LoadConfig builds a Config from args (usually os.Args[1:]): defaults, then
// the environment and a dotenv file, then the JSON file given by -c/-config,
// then command-line flags. Later sources win.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, flagx.EnvFile(args, ".env")); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
