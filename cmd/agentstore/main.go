// Command agentstore is an operator tool for agentstore database files:
// it initializes the schema, verifies an existing file, and reports row
// counts per table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/calyptra/agentstore/common/version"
	"github.com/calyptra/agentstore/internal/adapter"
	"github.com/calyptra/agentstore/internal/config"
	"github.com/calyptra/agentstore/internal/contentschema"
	"github.com/calyptra/agentstore/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println("agentstore", version.Info())
		return
	}

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     parseLevel(cfg.LogLevel),
		AddSource: cfg.LogSource,
	}))

	if err := run(flag.Arg(0), cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(verb string, cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	st, err := store.Open(cfg.DatabasePath,
		store.WithLogger(logger),
		store.WithBusyTimeout(cfg.BusyTimeoutMS))
	if err != nil {
		return err
	}

	opts := []adapter.Option{adapter.WithLogger(logger)}
	if len(cfg.ContentSchemas) > 0 {
		registry, err := contentschema.NewRegistry(cfg.ContentSchemas)
		if err != nil {
			st.Close()
			return err
		}
		opts = append(opts, adapter.WithContentSchemas(registry))
	}

	db := adapter.New(st, opts...)
	defer db.Close()

	switch verb {
	case "init":
		if err := db.Init(ctx); err != nil {
			return err
		}
		fmt.Printf("initialized %s\n", cfg.DatabasePath)
		return nil

	case "verify":
		if err := st.VerifyTables(ctx); err != nil {
			return err
		}
		fmt.Printf("%s: all required tables present\n", cfg.DatabasePath)
		return nil

	case "stats":
		return printStats(ctx, st)

	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}

// printStats reports the row count of each required table.
func printStats(ctx context.Context, st *store.Store) error {
	tables := []string{
		"rooms", "accounts", "memories", "messages", "goals",
		"logs", "participants", "relationships", "cache",
	}
	for _, table := range tables {
		var n int
		err := st.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
		if err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}
		fmt.Printf("%-14s %d\n", table, n)
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: agentstore [flags] <command>

Commands:
  init    apply the schema and verify all required tables
  verify  check an existing database for missing tables
  stats   print row counts per table

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  AGENTSTORE_DB_PATH          database file path (overrides config file)
  AGENTSTORE_LOG_LEVEL        debug, info, warn, error
  AGENTSTORE_BUSY_TIMEOUT_MS  SQLite busy timeout in milliseconds
  AGENTSTORE_LOG_SOURCE       true to include source locations in logs
`)
}
