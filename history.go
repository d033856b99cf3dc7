package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/leslieo2/go-api-probe/internal/history"
)

func NewHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with --history, newest first. With --run, print the
check results of a single run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer func() { _ = tw.Flush() }()

			if runID != "" {
				results, err := store.CheckResults(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					return fmt.Errorf("no results for run %s", runID)
				}
				fmt.Fprintln(tw, "CHECK\tRESULT\tDURATION\tREASON")
				for _, r := range results {
					status := "PASS"
					if !r.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, status, r.Duration.Round(time.Microsecond), r.Reason)
				}
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded in %s\n", store.Path())
				return nil
			}
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tTARGET\tPASSED\tFAILED\tSUCCESS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.1f%%\n",
					r.RunID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Target, r.Passed, r.Failed, r.SuccessRate)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the check results of one run")

	return cmd
}
