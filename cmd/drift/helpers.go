package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/hyperengineering/drift/internal/config"
	"github.com/hyperengineering/drift/internal/store"
	"github.com/hyperengineering/drift/internal/target"
)

var (
	dbPathOverride string
	idFieldFlag    string
	modFieldFlag   string
	jsonOutput     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Store database path (overrides config and DRIFT_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&idFieldFlag, "id-field", "",
		"Record identity field name (default \"Id\")")
	rootCmd.PersistentFlags().StringVar(&modFieldFlag, "modification-field", "",
		"Record modification date field name (default \"LastModifiedDate\")")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")
}

// setup loads configuration, initializes the default logger, and opens the
// store. The caller must close the returned store.
func setup() (*config.Config, *store.SQLiteStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	dbPath := cfg.Database.Path
	if dbPathOverride != "" {
		dbPath = dbPathOverride
	}

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newTarget builds the sync target from the field-name flags.
func newTarget() *target.Target {
	var opts []target.Option
	if idFieldFlag != "" {
		opts = append(opts, target.WithIDField(idFieldFlag))
	}
	if modFieldFlag != "" {
		opts = append(opts, target.WithModificationDateField(modFieldFlag))
	}
	return target.New(opts...)
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}
