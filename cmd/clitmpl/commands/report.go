package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/clitmpl/pkg/stores"
)

func newReportCommand() *cobra.Command {
	var (
		storePath string
		limit     int
		prune     bool
		severity  string
	)

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show recorded check runs",
		Long: `List the check runs recorded with "check --store", newest first, or
show the findings of one run.`,
		Example: `  # List the last runs
  clitmpl report --limit 10

  # Show the errors of a run
  clitmpl report 6f1c... --severity error

  # Drop runs beyond the configured keep count
  clitmpl report --prune`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if storePath == "" {
				storePath = toolConfig.Store.Path
			}
			if _, err := os.Stat(storePath); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no check history at %s", storePath)
			}

			store, err := stores.Open(ctx, storePath)
			if err != nil {
				return fmt.Errorf("failed to open check history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()

			if prune {
				if toolConfig.Store.Keep == 0 {
					fmt.Fprintln(out, "store.keep is 0, nothing pruned")
					return nil
				}
				n, err := store.PruneRuns(ctx, toolConfig.Store.Keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pruned %d runs\n", n)
				return nil
			}

			if len(args) == 1 {
				run, err := store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				var filter stores.FindingFilter
				if severity != "" {
					filter.Severity = &severity
				}
				findings, err := store.ListFindings(ctx, run.ID, filter)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(out, map[string]any{"run": run, "findings": findings})
				}
				printRun(cmd, run)
				for _, f := range findings {
					fmt.Fprintf(out, "%s:%d:%d: %s: %s %s\n", f.File, f.Line, f.Column, f.Severity, f.Code, f.Message)
				}
				return nil
			}

			runs, err := store.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(out, runs)
			}
			for _, run := range runs {
				printRun(cmd, run)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "SQLite check history (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs listed")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete runs beyond store.keep")
	cmd.Flags().StringVar(&severity, "severity", "", "only show findings of this severity")

	return cmd
}

func printRun(cmd *cobra.Command, run *stores.CheckRun) {
	duration := "-"
	if run.FinishedAt != nil {
		duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %s  files=%d findings=%d duration=%s\n",
		run.ID,
		run.Status,
		run.StartedAt.Local().Format(time.DateTime),
		run.Files,
		run.Findings,
		duration)
	if run.Error != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "    error: %s\n", *run.Error)
	}
}
