package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search TITLE",
		Short: "Search the Library of Congress catalog for a title",
		Long: `Search the Library of Congress catalog and print the results that score at
or above the search threshold. The store is not consulted or updated.`,
		Example: `  lccn search "A Fine Balance"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			candidates, err := a.catalogClient().Search(cmd.Context(), title)
			if err != nil {
				return err
			}
			printCandidates(cmd.OutOrStdout(), candidates)
			return nil
		},
	}
	return cmd
}
