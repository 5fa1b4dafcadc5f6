// Package config resolves runtime settings: environment first, then flags.
package config

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Backend names the storage implementation in use.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

type Config struct {
	AccountsFile    string
	LogFile         string
	DatabaseURL     string
	SQLitePath      string
	Currency        string
	MetricsAddr     string
	MetricsTextfile string
	LogLevel        string
	LogFormat       string
}

// Load reads LEDGER_* and related variables, then lets args override them.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		AccountsFile:    getEnvOrDefault("LEDGER_ACCOUNTS_FILE", "accounts.txt"),
		LogFile:         getEnvOrDefault("LEDGER_LOG_FILE", "transaction_log.txt"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:      strings.TrimSpace(os.Getenv("LEDGER_SQLITE_PATH")),
		Currency:        getEnvOrDefault("LEDGER_CURRENCY", "USD"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "json"),
	}

	fs := flag.NewFlagSet("teller", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.AccountsFile, "accounts", cfg.AccountsFile, "accounts file (file backend)")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "transaction log file (file backend)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres DSN; selects the postgres backend")
	fs.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "sqlite database path; selects the sqlite backend")
	fs.StringVar(&cfg.Currency, "currency", cfg.Currency, "ISO 4217 code for displaying balances; empty for bare numbers")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /metrics and /healthz on this address")
	fs.StringVar(&cfg.MetricsTextfile, "metrics-textfile", cfg.MetricsTextfile, "write metrics to this file on exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Backend picks postgres when a DSN is set, then sqlite, then flat files.
func (c *Config) Backend() Backend {
	switch {
	case c.DatabaseURL != "":
		return BackendPostgres
	case c.SQLitePath != "":
		return BackendSQLite
	default:
		return BackendFile
	}
}

// Logger builds the slog logger. It writes to w so the menu on stdout stays readable.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)
	if strings.ToLower(strings.TrimSpace(c.LogFormat)) == "text" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "INFO", "info":
		return slog.LevelInfo
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
