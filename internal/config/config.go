package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "jwt-secret", "password",
}

type Config struct {
	Port                   int      `env:"PORT" envDefault:"8080"`
	AppEnv                 string   `env:"APP_ENV" envDefault:"development"`
	DatabaseURL            string   `env:"DATABASE_URL,required"`
	RedisURL               string   `env:"REDIS_URL,required"`
	JWTSecret              string   `env:"JWT_SECRET,required"`
	JWTTTLHours            int      `env:"JWT_TTL_HOURS" envDefault:"720"`
	LogLevel               string   `env:"LOG_LEVEL" envDefault:"info"`
	AutoMigrate            bool     `env:"AUTO_MIGRATE" envDefault:"true"`
	CORSAllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ClaimRateLimitPerMin   int      `env:"CLAIM_RATE_LIMIT_PER_MIN" envDefault:"10"`
	AuthRateLimitPerMin    int      `env:"AUTH_RATE_LIMIT_PER_MIN" envDefault:"20"`
	AuditRetentionDays     int      `env:"AUDIT_RETENTION_DAYS" envDefault:"90"`
	AuditRetentionSchedule string   `env:"AUDIT_RETENTION_SCHEDULE" envDefault:"0 3 * * *"`
	AuditStreamKey         string   `env:"AUDIT_STREAM_KEY" envDefault:"audit:stream"`
	AuditFlushBatch        int      `env:"AUDIT_FLUSH_BATCH" envDefault:"100"`
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.AuditRetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) Validate() error {
	if c.AuditFlushBatch <= 0 {
		return fmt.Errorf("AUDIT_FLUSH_BATCH must be positive")
	}
	if c.ClaimRateLimitPerMin <= 0 || c.AuthRateLimitPerMin <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	if c.IsProduction() {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		for _, origin := range c.CORSAllowedOrigins {
			if origin == "*" {
				log.Warn().Msg("CORS_ALLOWED_ORIGINS allows any origin in production")
			}
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

// Load reads an optional .env file and then parses the environment.
// Variables already present in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
