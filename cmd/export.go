package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/results"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the resolution store",
		Long: `Write every stored resolution to a Parquet file (alternate identifiers as list
columns) or, for a .json output, to a JSON array.`,
		Example: `  lccn export --output resolutions.parquet
  lccn export --store resolved.db --store-backend sqlite --output resolutions.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.All(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read store: %w", err)
			}

			switch strings.ToLower(filepath.Ext(output)) {
			case ".parquet":
				err = results.ExportParquet(output, records)
			case ".json":
				err = results.SaveJSON(output, records)
			default:
				return fmt.Errorf("unsupported export format: %s (supported: .parquet, .json)", filepath.Ext(output))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(records), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "resolutions.parquet", "Output file (.parquet or .json)")
	return cmd
}
