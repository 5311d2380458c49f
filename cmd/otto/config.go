package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/blobstore"
	"github.com/dmitrymomot/otto/pkg/cookie"
	"github.com/dmitrymomot/otto/pkg/httpserver"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/pkg/pg"
	"github.com/dmitrymomot/otto/pkg/ratelimiter"
	"github.com/dmitrymomot/otto/pkg/redis"
	"github.com/dmitrymomot/otto/pkg/requestid"
	"github.com/dmitrymomot/otto/svc/session"
)

// AppConfig is needed by every command.
type AppConfig struct {
	Env        string `env:"APP_ENV" envDefault:"production"`
	LogLevel   string `env:"LOG_LEVEL"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`
}

func (c AppConfig) Validate() error {
	if c.BcryptCost < session.MinBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d", session.MinBcryptCost)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SecurityConfig holds the server secrets.
type SecurityConfig struct {
	EncryptionKey string        `env:"ENCRYPTION_KEY,required,notEmpty"`
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"otto"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
}

func (c SecurityConfig) Validate() error {
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

// AuditConfig controls retention of the audit log.
type AuditConfig struct {
	RetentionDays   int           `env:"AUDIT_RETENTION_DAYS" envDefault:"2"`
	CleanupInterval time.Duration `env:"AUDIT_CLEANUP_INTERVAL" envDefault:"1h"`
	BufferSize      int           `env:"AUDIT_BUFFER_SIZE" envDefault:"1000"`
}

func (c AuditConfig) Validate() error {
	if c.RetentionDays <= 0 {
		return errors.New("AUDIT_RETENTION_DAYS must be positive")
	}
	return nil
}

func (c AuditConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// LoginLimit throttles login attempts per client address.
type LoginLimit struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	Window      time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
}

func (l LoginLimit) Config() ratelimiter.Config {
	return ratelimiter.Config{Limit: l.MaxAttempts, Window: l.Window}
}

// ServeConfig is everything `otto serve` reads.
type ServeConfig struct {
	App      AppConfig
	Security SecurityConfig
	Audit    AuditConfig
	Login    LoginLimit
	DB       pg.Config
	Redis    redis.Config
	HTTP     httpserver.Config
	Backup   blobstore.Config
	Cookie   cookie.Config
}

func (c *ServeConfig) Validate() error {
	return errors.Join(c.App.Validate(), c.Security.Validate(), c.Audit.Validate())
}

func newLogger(cfg AppConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			logger.StringExtractor("username", func(ctx context.Context) string {
				name, _ := otto.UsernameFromContext(ctx)
				return name
			}),
		),
	}
	if cfg.LogLevel != "" {
		level, _ := logger.ParseLevel(cfg.LogLevel)
		opts = append(opts, logger.WithLevel(level))
	}
	return logger.New(opts...)
}
