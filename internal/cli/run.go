// Package cli implements the atdir command line: filter administration,
// direct record management, and the HTTP daemon.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atdir/atdir/internal/config"
	"github.com/atdir/atdir/internal/identity"
	ilog "github.com/atdir/atdir/internal/log"
	"github.com/atdir/atdir/internal/resolver"
	"github.com/atdir/atdir/internal/server"
	"github.com/atdir/atdir/internal/store/sqlite"
)

// Run dispatches the subcommand and returns the process exit code.
func Run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch args[0] {
	case "init", "update":
		return runRebuild(ctx, args[0], args[1:])
	case "httpd":
		return runServe(ctx, args[1:])
	case "add":
		return runAdd(ctx, args[1:])
	case "list":
		return runList(ctx, args[1:])
	case "-h", "--help", "help":
		printUsage()
		return 0
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", args[0])
		printUsage()
		return 2
	}
}

// runRebuild reloads the reserved-word filter from the word list. `init`
// and `update` are the same operation; the filter rebuild is idempotent.
func runRebuild(ctx context.Context, name string, args []string) int {
	cfg, err := config.ParseAdminArgs(name, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, name, "error:", err)
		return 2
	}

	store, err := sqlite.OpenReserved(cfg.ReservedDBPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "filter store error:", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	count, err := store.Rebuild(ctx, cfg.WordListPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "filter rebuild error:", err)
		return 1
	}
	fmt.Printf("loaded %d reserved words from %s\n", count, cfg.WordListPath())
	return 0
}

func runServe(ctx context.Context, args []string) int {
	cfg, err := config.ParseServeArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "httpd config error:", err)
		return 2
	}
	logger := ilog.New(cfg.LogLevel)

	users, err := sqlite.Open(cfg.UsersDBPath(), cfg.Domain, sqlite.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		TokenLength:  cfg.TokenLength,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "directory store error:", err)
		return 1
	}
	defer func() { _ = users.Close() }()

	reserved, err := sqlite.OpenReserved(cfg.ReservedDBPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "filter store error:", err)
		return 1
	}
	defer func() { _ = reserved.Close() }()

	res := resolver.New(cfg.ResolveTimeout, cfg.ExternalSuffixes, logger)

	s := server.New(cfg, users, reserved, res, logger)
	if err := s.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "server error:", err)
		return 1
	}
	return 0
}

// runAdd registers a record directly, through the same validated creation
// path as the HTTP flow, and prints the management token once.
func runAdd(ctx context.Context, args []string) int {
	cfg, rest, err := config.ParseDirectoryArgs("add", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "add error:", err)
		return 2
	}
	if len(rest) < 2 || len(rest) > 3 {
		fmt.Fprintln(os.Stderr, "usage: add [flags] <basedir> <domain> <label> <did> [email]")
		return 2
	}
	label, did := rest[0], rest[1]
	email := ""
	if len(rest) == 3 {
		email = rest[2]
	}

	users, err := sqlite.Open(cfg.UsersDBPath(), cfg.Domain, sqlite.Options{TokenLength: cfg.TokenLength})
	if err != nil {
		fmt.Fprintln(os.Stderr, "directory store error:", err)
		return 1
	}
	defer func() { _ = users.Close() }()

	rec, err := users.CreateRecord(ctx, identity.CreateInput{
		Handle: label + "." + cfg.Domain,
		Label:  label,
		DID:    did,
		Email:  email,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "add error:", err)
		return 1
	}
	fmt.Printf("registered %s -> %s\ntoken: %s\n", rec.Handle, rec.DID, rec.Token)
	return 0
}

// runList dumps the directory for operator inspection.
func runList(ctx context.Context, args []string) int {
	cfg, rest, err := config.ParseDirectoryArgs("list", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list error:", err)
		return 2
	}
	if len(rest) != 0 {
		fmt.Fprintln(os.Stderr, "usage: list <basedir> <domain>")
		return 2
	}

	users, err := sqlite.Open(cfg.UsersDBPath(), cfg.Domain, sqlite.Options{TokenLength: cfg.TokenLength})
	if err != nil {
		fmt.Fprintln(os.Stderr, "directory store error:", err)
		return 1
	}
	defer func() { _ = users.Close() }()

	records, err := users.ListRecords(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list error:", err)
		return 1
	}
	for _, rec := range records {
		fmt.Printf("%s\t%s\t%s\t%s\n", rec.Handle, rec.DID, rec.Email, rec.CreationTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("%d records\n", len(records))
	return 0
}

func printUsage() {
	fmt.Print(`atdir - subdomain handle directory

Usage:
  atdir init [flags] <basedir>                  create/rebuild the reserved-word filter
  atdir update [flags] <basedir>                same as init; reload the word list
  atdir httpd [flags] <basedir> <domain>        serve the directory for <domain>
  atdir add [flags] <basedir> <domain> <label> <did> [email]
                                                register a record directly
  atdir list <basedir> <domain>                 print registered records

Flags (httpd):
  --listen addr           HTTP listen address (default :8123, env ATDIR_LISTEN)
  --log-level level       debug|info|warn|error (env ATDIR_LOG_LEVEL)
  --token-length n        management token length (env ATDIR_TOKEN_LENGTH)
  --resolve-timeout d     remote DID resolution timeout
  --resolve-suffixes list handle suffixes resolved remotely (env ATDIR_RESOLVE_SUFFIXES)
`)
}
