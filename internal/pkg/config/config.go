package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port        string `env:"PORT,         default=8080"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	FrontendURL string `env:"FRONTEND_URL, default=http://localhost:3000"`
	CORSOrigins string `env:"CORS_ORIGINS, default=http://localhost:3000"`

	Auth      AuthConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	Seed      SeedConfig
}

type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET,          required"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,  required"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL,    default=1h"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL,   default=168h"`
	BcryptCost       int           `env:"BCRYPT_COST,         default=12"`
	MaxLoginAttempts int           `env:"LOGIN_MAX_ATTEMPTS,  default=5"`
	LockDuration     time.Duration `env:"LOGIN_LOCK_DURATION, default=2h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=blogify"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type RateLimitConfig struct {
	LoginLimit      int           `env:"RATE_LOGIN_LIMIT,       default=5"`
	LoginWindow     time.Duration `env:"RATE_LOGIN_WINDOW,      default=15m"`
	SignupLimit     int           `env:"RATE_SIGNUP_LIMIT,      default=3"`
	SignupWindow    time.Duration `env:"RATE_SIGNUP_WINDOW,     default=1h"`
	GlobalPerMinute int           `env:"RATE_GLOBAL_PER_MINUTE, default=300"`
}

type MailConfig struct {
	From         string `env:"MAIL_FROM,     default=no-reply@blogify.local"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,     default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

type SeedConfig struct {
	AdminName     string `env:"SEED_ADMIN_NAME,     default=Super Admin"`
	AdminEmail    string `env:"SEED_ADMIN_EMAIL,    default=admin@blogify.com"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD, default=Admin@123"`
}

// IsDevelopment reports whether ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == cfg.Auth.JWTRefreshSecret {
		return nil, fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return &cfg, nil
}
