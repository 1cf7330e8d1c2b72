// Package config loads service settings from the environment (and .env).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           string `env:"PORT,default=5200"`
	DatabaseURL    string `env:"DATABASE_URL,required"`
	GatewayToken   string `env:"GATEWAY_TOKEN,required"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`

	ProfileServiceURL string `env:"PROFILE_SERVICE_URL"`
	ServiceToken      string `env:"SERVICE_TOKEN"`
	PayoutServiceURL  string `env:"PAYOUT_SERVICE_URL"`

	PayoutInterval    time.Duration `env:"PAYOUT_INTERVAL,default=30s"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL,default=1m"`
	ProfileSyncEvery  time.Duration `env:"PROFILE_SYNC_INTERVAL,default=1m"`
	VoteRatePerMinute int           `env:"VOTE_RATE_PER_MINUTE,default=30"`

	RedisAddr string `env:"REDIS_ADDR"`

	CloudflareAccountID string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `env:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string `env:"R2_BUCKET_NAME"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
	AppEnv   string `env:"APP_ENV,default=development"`
}

// Load reads .env if present, then decodes the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("⚠️  No .env file found, reading environment variables directly")
	}
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.VoteRatePerMinute <= 0 {
		return fmt.Errorf("VOTE_RATE_PER_MINUTE must be positive, got %d", c.VoteRatePerMinute)
	}
	if c.PayoutInterval <= 0 || c.SweepInterval <= 0 || c.ProfileSyncEvery <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	return nil
}

// Origins returns ALLOWED_ORIGINS normalized for fiber's CORS config.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// Pretty is true outside production; console logs instead of JSON.
func (c *Config) Pretty() bool {
	return c.AppEnv != "production"
}

// UsesSQLite is true for sqlite DSNs (file:... or *.db), used for local runs.
func (c *Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "file:") || strings.HasSuffix(c.DatabaseURL, ".db")
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
