package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/config"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/logging"
	"github.com/spf13/cobra"
)

// app carries the global flags and the configuration they produce
type app struct {
	configPath   string
	logLevel     string
	logFormat    string
	storePath    string
	storeBackend string
	dumpPath     string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "lccn",
		Short: "Resolve book titles to LCCN and OCLC identifiers",
		Long: `lccn resolves free-text book titles to Library of Congress Control Numbers
and OCLC numbers.

Each title is checked against the local resolution store, then the Library of
Congress search API, then an Open Library editions dump. Every outcome, including
an explicit "no match", is persisted so titles are never looked up twice.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to TOML config file (default ./"+config.DefaultFileName+" if present)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (auto, text, json)")
	flags.StringVar(&a.storePath, "store", "", "Path to the resolution store")
	flags.StringVar(&a.storeBackend, "store-backend", "", "Store backend (csv, sqlite)")
	flags.StringVar(&a.dumpPath, "dump", "", "Path to the Open Library editions dump")

	// Add subcommands
	cmd.AddCommand(newResolveCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newScanCmd(a))
	cmd.AddCommand(newConfirmCmd(a))
	cmd.AddCommand(newLookupCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newDumpCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

// load applies defaults, the config file, LCCN_* variables and finally flags
func (a *app) load(cmd *cobra.Command) error {
	cfg, path, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = strings.ToLower(a.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = strings.ToLower(a.logFormat)
	}
	if flags.Changed("store") {
		cfg.Paths.Store = a.storePath
	}
	if flags.Changed("store-backend") {
		cfg.Store.Backend = strings.ToLower(a.storeBackend)
	}
	if flags.Changed("dump") {
		cfg.Paths.Dump = a.dumpPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Setup(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return err
	}
	if path != "" {
		slog.Debug("Loaded config", "path", path)
	}

	a.cfg = cfg
	return nil
}
