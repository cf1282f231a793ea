package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/storage"
	"github.com/spf13/cobra"
)

func newConfirmCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm TITLE LCCN...",
		Short: "Check which LCCN's catalog title matches TITLE",
		Long: `Fetch the catalog title of each LCCN in order and compare it to TITLE at the
confirmation threshold. The first LCCN that matches is printed; later ones are
not looked up.`,
		Example: `  lccn confirm "Beloved" 00000001 87040378`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.catalogClient()
			res := resolver.New(a.cfg.ResolverConfig(), storage.NewMemory(), resolver.WithTitleFetcher(client))

			confirmation, err := res.Confirm(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if confirmation == nil {
				fmt.Fprintf(out, "No LCCN confirmed for %q\n", args[0])
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"LCCN", "Catalog title", "Score", "Mode"},
				[][]string{{
					confirmation.LCCN,
					confirmation.CanonicalTitle,
					fmt.Sprintf("%d", confirmation.Score),
					string(confirmation.Mode),
				}},
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	return cmd
}
