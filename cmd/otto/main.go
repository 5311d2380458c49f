// Command otto runs the team TOTP server and its maintenance tasks.
//
//	otto serve          start the HTTP server
//	otto migrate        apply database migrations
//	otto create-admin   create an admin user interactively
//	otto audit-cleanup  delete audit events past retention
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string) error
}

var commands = []command{
	{"serve", "start the HTTP server", serve},
	{"migrate", "apply database migrations", migrate},
	{"create-admin", "create an admin user", createAdmin},
	{"audit-cleanup", "delete audit events past retention", auditCleanup},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "otto:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	name := "serve"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	for _, c := range commands {
		if c.name == name {
			return c.run(ctx, args)
		}
	}
	usage()
	return fmt.Errorf("unknown command %q", name)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: otto <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", c.name, c.usage)
	}
}
