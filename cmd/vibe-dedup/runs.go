package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-dedup/internal/duckdb"
)

func newRunsCmd() *cobra.Command {
	var (
		runID     string
		clearRuns bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in a statistics database",
		Example: `  vibe-dedup runs --stats-db runs.duckdb
  vibe-dedup runs --stats-db runs.duckdb --run 5f0c...
  vibe-dedup runs --stats-db runs.duckdb --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, "stats-db"); err != nil {
				return err
			}
			dbPath := viper.GetString("stats-db")
			if dbPath == "" {
				return usageError{fmt.Errorf("--stats-db is required")}
			}
			if clearRuns && runID != "" {
				return usageError{fmt.Errorf("--clear and --run are mutually exclusive")}
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if clearRuns {
				if err := store.ClearRuns(); err != nil {
					return fmt.Errorf("clear runs: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared runs in %s\n", dbPath)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if runID != "" {
				counts, err := store.ChromCounts(runID)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "CHROM\tUNIQUE_READS")
				for _, c := range counts {
					fmt.Fprintf(tw, "%s\t%d\n", c.Chrom, c.UniqueReads)
				}
				return tw.Flush()
			}

			runs, err := store.ListRuns()
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "RUN_ID\tSTARTED\tSOURCE\tHEADERS\tUNIQUE\tWRONG_UMI\tDUPLICATES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Source.Path,
					r.HeaderLines, r.UniqueReads, r.WrongUMIs, r.DuplicatesRemoved)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("stats-db", "", "DuckDB statistics database")
	cmd.Flags().StringVar(&runID, "run", "", "Show per-chromosome counts of this run")
	cmd.Flags().BoolVar(&clearRuns, "clear", false, "Delete all recorded runs")

	return cmd
}
