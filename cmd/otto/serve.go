package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/internal/db"
	"github.com/dmitrymomot/otto/modules/web"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/blobstore"
	"github.com/dmitrymomot/otto/pkg/clientip"
	"github.com/dmitrymomot/otto/pkg/config"
	"github.com/dmitrymomot/otto/pkg/cookie"
	"github.com/dmitrymomot/otto/pkg/httpserver"
	"github.com/dmitrymomot/otto/pkg/jwt"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/pkg/pg"
	"github.com/dmitrymomot/otto/pkg/ratelimiter"
	"github.com/dmitrymomot/otto/pkg/redis"
	"github.com/dmitrymomot/otto/pkg/requestid"
	"github.com/dmitrymomot/otto/pkg/secrets"
	"github.com/dmitrymomot/otto/svc/accounts"
	"github.com/dmitrymomot/otto/svc/apikey"
	"github.com/dmitrymomot/otto/svc/auditlog"
	"github.com/dmitrymomot/otto/svc/backup"
	"github.com/dmitrymomot/otto/svc/policy"
	"github.com/dmitrymomot/otto/svc/session"
	"github.com/dmitrymomot/otto/svc/users"
)

const auditFlushTimeout = 10 * time.Second

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	skipMigrate := fs.Bool("skip-migrate", false, "do not apply migrations on startup")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg ServeConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	log := newLogger(cfg.App)

	pool, err := pg.Connect(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if !*skipMigrate {
		if err := db.Migrate(ctx, pool, cfg.DB, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	key, err := secrets.ParseKey(cfg.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}
	cipher, err := secrets.New(key)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}
	tokens, err := jwt.NewFromString(cfg.Security.JWTSecret, jwt.WithIssuer(cfg.Security.JWTIssuer))
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}

	store := db.New(pool)
	auditDB := db.NewAudit(pool)
	writer := audit.NewAsyncWriter(auditDB, log, audit.AsyncOptions{BufferSize: cfg.Audit.BufferSize})
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), auditFlushTimeout)
		defer cancel()
		if err := writer.Close(flushCtx); err != nil {
			log.Error("audit flush incomplete", logger.Error(err))
		}
	}()
	recorder := audit.NewRecorder(writer,
		audit.WithUsernameExtractor(otto.UsernameFromContext),
		audit.WithRequestIDExtractor(requestid.Extract),
		audit.WithIPExtractor(clientip.Extract),
		audit.WithUserAgentExtractor(web.UserAgent),
		audit.WithLogger(log),
	)

	checks := []func(context.Context) error{pg.Healthcheck(pool)}
	var limitStore ratelimiter.Store
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		limitStore = ratelimiter.NewRedisStore(client, "otto:ratelimit:")
		checks = append(checks, redis.Healthcheck(client))
	} else {
		mem := ratelimiter.NewMemoryStore()
		defer mem.Close()
		limitStore = mem
	}
	limiter, err := ratelimiter.New(limitStore, cfg.Login.Config())
	if err != nil {
		return fmt.Errorf("login limiter: %w", err)
	}

	pol := policy.New()
	sessions := session.New(store, tokens,
		session.WithTTL(cfg.Security.SessionTTL),
		session.WithBcryptCost(cfg.App.BcryptCost),
		session.WithAuditor(recorder),
		session.WithLogger(log),
	)
	keys := apikey.New(store, pol, apikey.WithAuditor(recorder), apikey.WithLogger(log))
	accountSvc := accounts.New(store, cipher, pol, accounts.WithAuditor(recorder), accounts.WithLogger(log))
	userSvc := users.New(store, pol,
		users.WithBcryptCost(cfg.App.BcryptCost),
		users.WithAuditor(recorder),
		users.WithLogger(log),
	)
	auditSvc := auditlog.New(auditDB, pol,
		auditlog.WithRetention(cfg.Audit.Retention()),
		auditlog.WithAuditor(recorder),
		auditlog.WithLogger(log),
	)

	backupOpts := []backup.Option{backup.WithAuditor(recorder), backup.WithLogger(log)}
	if cfg.Backup.Enabled() {
		blobs, err := blobstore.New(ctx, cfg.Backup)
		if err != nil {
			return fmt.Errorf("backup storage: %w", err)
		}
		backupOpts = append(backupOpts, backup.WithUploader(blobs))
	}
	backupSvc := backup.New(store, pol, backupOpts...)

	if created, err := userSvc.EnsureAdmin(ctx, cfg.Security.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	} else if !created {
		log.DebugContext(ctx, "admin bootstrap skipped")
	}

	router := newRouter(log, cfg, sessions, keys, accountSvc, userSvc, auditSvc, backupSvc, limiter)
	router.Get("/health/live", httpserver.HealthCheckHandler(log))
	router.Get("/health/ready", httpserver.HealthCheckHandler(log, checks...))

	server := httpserver.New(cfg.HTTP, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, router)
	})
	g.Go(func() error {
		audit.RunRetention(gctx, auditDB, cfg.Audit.Retention(), cfg.Audit.CleanupInterval, log)
		return nil
	})

	log.InfoContext(ctx, "otto started", slog.String("addr", cfg.HTTP.Addr))
	return g.Wait()
}

func newRouter(
	log *slog.Logger,
	cfg ServeConfig,
	sessions *session.Service,
	keys *apikey.Service,
	accountSvc *accounts.Service,
	userSvc *users.Service,
	auditSvc *auditlog.Service,
	backupSvc *backup.Service,
	limiter *ratelimiter.Limiter,
) chi.Router {
	errh := handler.NewErrorHandler(log)
	cookies := cookie.New(cfg.Cookie)

	return web.Router(web.RouterOptions{
		Guard:    web.NewAuthenticator(sessions, keys, cookies, errh),
		Auth:     web.NewAuthHandler(sessions, cookies, limiter, errh),
		Accounts: web.NewAccountsHandler(accountSvc, errh),
		QR:       web.NewQRHandler(errh),
		APIKeys:  web.NewAPIKeysHandler(keys, errh),
		Users:    web.NewUsersHandler(userSvc, errh),
		Audit:    web.NewAuditHandler(auditSvc, errh),
		Backup:   web.NewBackupHandler(backupSvc, errh),
		API:      web.NewAPIHandler(accountSvc, errh),
	})
}
