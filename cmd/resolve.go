package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/results"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/storage"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/titles"
	"github.com/spf13/cobra"
)

func newResolveCmd(a *app) *cobra.Command {
	var titlesPath string
	var dryRun bool
	var noReport bool
	var concurrency int
	var strategy string
	var confirm bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a file of titles to LCCN and OCLC numbers",
		Long: `Resolve every title in a text file (one per line, blank lines ignored).

Titles already in the store are reused. The rest are searched in the Library of
Congress catalog and, failing that, in the Open Library dump. Each outcome is
appended to the store and a run report is written to the reports directory.`,
		Example: `  # Resolve titles into the default CSV store
  lccn resolve --titles data/unique_sources.txt

  # Try the dump first, with a SQLite store
  lccn resolve --titles titles.txt --strategy bulk-first --store-backend sqlite --store resolved.db

  # Preview without writing to the store
  lccn resolve --titles titles.txt --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("concurrency") {
				a.cfg.Resolver.Concurrency = concurrency
			}
			if cmd.Flags().Changed("strategy") {
				a.cfg.Resolver.Strategy = strategy
			}
			if cmd.Flags().Changed("confirm") {
				a.cfg.Resolver.ConfirmLCCNs = confirm
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return a.executeResolve(cmd, titlesPath, dryRun, !noReport)
		},
	}

	cmd.Flags().StringVar(&titlesPath, "titles", "", "Path to titles file (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve against an in-memory copy of the store")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Skip writing the YAML run report")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of titles resolved in parallel")
	cmd.Flags().StringVar(&strategy, "strategy", "remote-first", "Source order (remote-first, bulk-first)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm remote LCCNs against their catalog titles")

	_ = cmd.MarkFlagRequired("titles")
	return cmd
}

func (a *app) executeResolve(cmd *cobra.Command, titlesPath string, dryRun, writeReport bool) error {
	ctx := cmd.Context()
	runID := results.NewRunID()
	started := time.Now()
	slog.Info("Starting resolution run", "run_id", runID, "titles", titlesPath, "store", a.cfg.Paths.Store, "dry_run", dryRun)

	input, err := titles.Load(titlesPath)
	if err != nil {
		return err
	}

	var store storage.Store
	if dryRun {
		store, err = a.openDryRunStore(ctx)
	} else {
		store, err = a.openStore()
	}
	if err != nil {
		return err
	}
	defer store.Close()

	res, closeRejects, err := a.newResolver(store, !dryRun)
	if err != nil {
		return err
	}
	defer closeRejects()

	outcomes, runErr := res.ResolveAll(ctx, input)
	if runErr != nil {
		slog.Error("Resolution run stopped", "run_id", runID, "err", runErr)
	}

	report := results.NewReport(runID, started, results.RunConfig{
		Titles:       titlesPath,
		Store:        a.cfg.Paths.Store,
		StoreBackend: a.cfg.Store.Backend,
		Dump:         a.cfg.Paths.Dump,
		Strategy:     a.cfg.Resolver.Strategy,
		Concurrency:  a.cfg.Resolver.Concurrency,
		ConfirmLCCNs: a.cfg.Resolver.ConfirmLCCNs,
		DryRun:       dryRun,
		Thresholds:   a.cfg.ThresholdMap(),
	}, outcomes)

	if writeReport {
		path, err := report.Save(a.cfg.Paths.ReportsDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run report saved to: %s\n", path)
	}
	if !dryRun && a.cfg.Paths.Results != "" {
		if err := results.SaveJSON(a.cfg.Paths.Results, results.NewRecords(outcomes)); err != nil {
			return err
		}
	}

	printSummary(cmd.OutOrStdout(), report.Summary)
	return runErr
}
