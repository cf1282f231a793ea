package cmd

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/textnorm"
	"github.com/spf13/cobra"
)

func newLookupCmd(a *app) *cobra.Command {
	var similar int

	cmd := &cobra.Command{
		Use:   "lookup TITLE",
		Short: "Look a title up in the resolution store",
		Long: `Print the stored resolution for TITLE, matched on its normalized form.
With --similar, fall back to the first stored title whose partial-ratio score
reaches the given threshold.`,
		Example: `  lccn lookup "A Fine Balance"
  lccn lookup "the history of albany ny" --similar 95`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			title := strings.Join(args, " ")
			record, err := store.Lookup(cmd.Context(), title)
			if err != nil {
				return err
			}
			if record == nil && similar > 0 {
				record, err = store.FindSimilar(cmd.Context(), textnorm.Normalize(title), similar)
				if err != nil {
					return err
				}
			}
			if record == nil {
				return fmt.Errorf("no stored resolution for %q", title)
			}
			printRecords(cmd.OutOrStdout(), []models.ResolutionRecord{*record})
			return nil
		},
	}

	cmd.Flags().IntVar(&similar, "similar", 0, "Partial-ratio threshold for a fuzzy fallback (0 disables)")
	return cmd
}
