package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/confcast/confcast/archive"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List scrape run history",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to show (0 for all)")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	store, err := archive.NewRunStore(cfg.RunsDB)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tCONFERENCE\tSTATUS\tSESSIONS\tTALKS\tERRORS\tARCHIVE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.StartedAt.Format(time.DateTime),
			run.ConferenceKey,
			run.Status,
			run.Sessions,
			run.Talks,
			run.EnrichErrors,
			run.ArchivePath,
		)
	}
	return w.Flush()
}
