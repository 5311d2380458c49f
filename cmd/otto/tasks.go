package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/dmitrymomot/otto/internal/db"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/config"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/pkg/pg"
	"github.com/dmitrymomot/otto/svc/policy"
	"github.com/dmitrymomot/otto/svc/users"
)

func migrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Bool("down", false, "roll back the latest migration")
	status := fs.Bool("status", false, "print migration status and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var app AppConfig
	var dbCfg pg.Config
	if err := config.LoadAll(&app, &dbCfg); err != nil {
		return err
	}
	log := newLogger(app)

	pool, err := pg.Connect(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	switch {
	case *status:
		return pg.Status(ctx, pool, dbCfg, db.Migrations, db.MigrationsDir, log)
	case *down:
		return pg.Rollback(ctx, pool, dbCfg, db.Migrations, db.MigrationsDir, log)
	default:
		return db.Migrate(ctx, pool, dbCfg, log)
	}
}

func createAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	username := fs.String("username", users.BootstrapUsername, "admin username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var app AppConfig
	var dbCfg pg.Config
	if err := config.LoadAll(&app, &dbCfg); err != nil {
		return err
	}
	log := newLogger(app)

	password, err := readPassword(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	svc := users.New(db.New(pool), policy.New(), users.WithBcryptCost(app.BcryptCost), users.WithLogger(log))
	u, err := svc.CreateAdmin(ctx, *username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "admin %q created (id %d)\n", u.Username, u.ID)
	return nil
}

// readPassword prompts twice on a terminal. Piped input is read as a single line.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(prompt, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	fmt.Fprint(prompt, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func auditCleanup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit-cleanup", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var app AppConfig
	var auditCfg AuditConfig
	var dbCfg pg.Config
	if err := config.LoadAll(&app, &auditCfg, &dbCfg); err != nil {
		return err
	}
	log := newLogger(app)

	pool, err := pg.Connect(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	start := time.Now()
	n, err := audit.Cleanup(ctx, db.NewAudit(pool), auditCfg.Retention(), start)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "audit cleanup done",
		slog.Int64("deleted", n),
		logger.Duration(time.Since(start)),
	)
	return nil
}
