// Package config builds the immutable runtime configuration from command
// line arguments and ATDIR_* environment fallbacks. Configuration is
// constructed once at startup and passed explicitly; no component reads
// ambient global state.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atdir/atdir/internal/auth"
	"github.com/atdir/atdir/internal/validate"
)

// Config carries everything the serving and admin paths need.
type Config struct {
	BaseDir string // directory holding the databases and the word list
	Domain  string // shared serving domain, e.g. example.com

	Listen             string
	LogLevel           string
	TokenLength        int
	ResolveTimeout     time.Duration
	ExternalSuffixes   []string // handle suffixes resolved via a remote fetch
	WordListFile       string   // file name inside BaseDir
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	ShutdownTimeout    time.Duration
	MaxFormBytes       int64
}

const defaultListen = ":8123"
const defaultWordListFile = "reserved_words.txt"
const defaultResolveTimeout = 10 * time.Second
const defaultShutdownTimeout = 5 * time.Second
const defaultMaxFormBytes = 16 * 1024
const defaultExternalSuffix = ".bsky.social"

// UsersDBPath is the principal directory store, one file per serving domain.
func (c Config) UsersDBPath() string {
	return filepath.Join(c.BaseDir, c.Domain+".users.db")
}

// ReservedDBPath is the reserved-word filter store, shared across domains.
func (c Config) ReservedDBPath() string {
	return filepath.Join(c.BaseDir, "reserved.db")
}

// WordListPath is the plain-text input consumed by the filter rebuild.
func (c Config) WordListPath() string {
	return filepath.Join(c.BaseDir, c.WordListFile)
}

// ParseServeArgs parses `httpd` arguments: flags followed by
// `<basedir> <domain>` positionals.
func ParseServeArgs(args []string) (Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("httpd", flag.ContinueOnError)
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	fs.IntVar(&cfg.TokenLength, "token-length", cfg.TokenLength, "Management token length")
	fs.DurationVar(&cfg.ResolveTimeout, "resolve-timeout", cfg.ResolveTimeout, "Remote DID resolution timeout")
	suffixes := envOrDefault("ATDIR_RESOLVE_SUFFIXES", defaultExternalSuffix)
	fs.StringVar(&suffixes, "resolve-suffixes", suffixes, "Comma-separated handle suffixes resolved remotely")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	rest := fs.Args()
	if len(rest) != 2 {
		return cfg, errors.New("usage: httpd [flags] <basedir> <domain>")
	}
	cfg.BaseDir = rest[0]
	cfg.Domain = normalizeDomainHost(rest[1])

	cfg.ExternalSuffixes = splitSuffixes(suffixes)
	return cfg, validateServe(cfg)
}

// ParseAdminArgs parses arguments for commands that only need a base
// directory (`init` and `update`).
func ParseAdminArgs(name string, args []string) (Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.WordListFile, "wordlist", cfg.WordListFile, "Word list file name inside basedir")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	rest := fs.Args()
	if len(rest) != 1 {
		return cfg, fmt.Errorf("usage: %s [flags] <basedir>", name)
	}
	cfg.BaseDir = rest[0]
	return cfg, validateBaseDir(cfg.BaseDir)
}

// ParseDirectoryArgs parses arguments for commands addressing one domain's
// directory store (`add` and `list`): `<basedir> <domain> [extra...]`.
// The extra positionals are returned to the caller.
func ParseDirectoryArgs(name string, args []string) (Config, []string, error) {
	cfg := defaults()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.IntVar(&cfg.TokenLength, "token-length", cfg.TokenLength, "Management token length")
	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return cfg, nil, fmt.Errorf("usage: %s [flags] <basedir> <domain> ...", name)
	}
	cfg.BaseDir = rest[0]
	cfg.Domain = normalizeDomainHost(rest[1])
	if err := validateServe(cfg); err != nil {
		return cfg, nil, err
	}
	return cfg, rest[2:], nil
}

func defaults() Config {
	return Config{
		Listen:          envOrDefault("ATDIR_LISTEN", defaultListen),
		LogLevel:        envOrDefault("ATDIR_LOG_LEVEL", "info"),
		TokenLength:     envIntOrDefault("ATDIR_TOKEN_LENGTH", auth.DefaultTokenLength),
		ResolveTimeout:  defaultResolveTimeout,
		WordListFile:    envOrDefault("ATDIR_WORDLIST", defaultWordListFile),
		DBMaxOpenConns:  envIntOrDefault("ATDIR_DB_MAX_OPEN_CONNS", 0),
		DBMaxIdleConns:  envIntOrDefault("ATDIR_DB_MAX_IDLE_CONNS", 0),
		ShutdownTimeout: defaultShutdownTimeout,
		MaxFormBytes:    defaultMaxFormBytes,
	}
}

func validateServe(cfg Config) error {
	if err := validateBaseDir(cfg.BaseDir); err != nil {
		return err
	}
	if cfg.Domain == "" {
		return errors.New("missing serving domain")
	}
	if !validate.Handle(cfg.Domain) {
		return fmt.Errorf("serving domain %q is not a valid host name", cfg.Domain)
	}
	if cfg.TokenLength <= 0 {
		return errors.New("token length must be > 0")
	}
	if cfg.ResolveTimeout <= 0 {
		return errors.New("resolve timeout must be > 0")
	}
	return nil
}

func validateBaseDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("missing base directory")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("base directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("base directory %q is not a directory", dir)
	}
	return nil
}

func splitSuffixes(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		out = append(out, s)
	}
	return out
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func normalizeDomainHost(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	v = strings.TrimPrefix(v, "https://")
	v = strings.TrimPrefix(v, "http://")
	if idx := strings.Index(v, "/"); idx >= 0 {
		v = v[:idx]
	}
	if strings.Contains(v, ":") {
		parts := strings.Split(v, ":")
		v = parts[0]
	}
	return strings.TrimSuffix(v, ".")
}
