package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/openlibrary"
	"github.com/spf13/cobra"
)

func newDumpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Manage the Open Library editions dump",
	}
	cmd.AddCommand(newDumpDownloadCmd(a))
	cmd.AddCommand(newDumpStatsCmd(a))
	return cmd
}

func newDumpDownloadCmd(a *app) *cobra.Command {
	var url string
	var force bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the Open Library editions dump into the cache",
		Long: `Download the Open Library editions dump into the cache directory. A cached
copy is reused unless --force is given. The printed path can be passed to --dump.`,
		Example: `  lccn dump download
  lccn dump download --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			downloader := openlibrary.NewDownloader(a.cfg.DownloadConfig(url, force), nil)
			path, err := downloader.Download(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dump available at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", openlibrary.DefaultDumpURL, "Dump URL")
	cmd.Flags().BoolVar(&force, "force", false, "Download even if a cached copy exists")
	return cmd
}

func newDumpStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count editions and malformed lines in the dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Paths.Dump == "" {
				return fmt.Errorf("--dump is required (or set paths.dump in the config)")
			}
			reader, err := openlibrary.Open(a.cfg.Paths.Dump)
			if err != nil {
				return err
			}
			defer reader.Close()

			var editions, withLCCN, withOCLC int
			for reader.Next() {
				if editions%100000 == 0 {
					if err := cmd.Context().Err(); err != nil {
						return err
					}
				}
				editions++
				lccn, oclc := reader.Edition().Identifiers()
				if len(lccn) > 0 {
					withLCCN++
				}
				if len(oclc) > 0 {
					withOCLC++
				}
			}
			if err := reader.Err(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Lines", "Editions", "Malformed", "With LCCN", "With OCLC"},
				[][]string{{
					fmt.Sprintf("%d", reader.Lines()),
					fmt.Sprintf("%d", editions),
					fmt.Sprintf("%d", reader.Malformed()),
					fmt.Sprintf("%d", withLCCN),
					fmt.Sprintf("%d", withOCLC),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	return cmd
}
