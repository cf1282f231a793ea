package cmd

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/openlibrary"
	"github.com/spf13/cobra"
)

func newScanCmd(a *app) *cobra.Command {
	var noStore bool

	cmd := &cobra.Command{
		Use:   "scan TITLE",
		Short: "Match a title against the Open Library editions dump",
		Long: `Stream the Open Library editions dump and print up to the configured number
of editions whose title matches. A stored resolution that matches closely enough
is returned instead of scanning, unless --no-store is given.`,
		Example: `  lccn scan "Beloved" --dump data/ol_dump_editions_latest.txt.gz`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Paths.Dump == "" {
				return fmt.Errorf("--dump is required (or set paths.dump in the config)")
			}

			var index openlibrary.ResolvedIndex
			if !noStore {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				index = store
			}

			title := strings.Join(args, " ")
			candidates, err := a.dumpScanner(index).Scan(cmd.Context(), title)
			if err != nil {
				return err
			}
			printCandidates(cmd.OutOrStdout(), candidates)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noStore, "no-store", false, "Always scan the dump, ignoring stored resolutions")
	return cmd
}
