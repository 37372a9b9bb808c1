package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gapipe/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run ledger",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))

	return runsCmd
}

func (c *commandContext) withLedger(fn func(*runstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return fmt.Errorf("run ledger is disabled in the configuration")
	}
	store, err := runstore.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent pipeline runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *runstore.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.Object,
						run.Status,
						run.StartedAt.Local().Format(time.RFC3339),
						formatRunElapsed(run),
					})
				}
				writeRows(cmd.OutOrStdout(),
					[]string{"RUN", "OBJECT", "STATUS", "STARTED", "ELAPSED"},
					rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its executed steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *runstore.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				steps, err := store.StepsForRun(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s\n", run.ID)
				fmt.Fprintf(out, "Pipeline: %s\n", run.Pipeline)
				fmt.Fprintf(out, "Object:   %s\n", run.Object)
				fmt.Fprintf(out, "Status:   %s\n", run.Status)
				fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Elapsed:  %s\n", formatRunElapsed(run))

				rows := make([][]string, 0, len(steps))
				for _, step := range steps {
					rows = append(rows, []string{
						humanStepLabel(step.Step),
						step.Outcome,
						step.Elapsed.Round(time.Millisecond).String(),
						step.Error,
					})
				}
				writeRows(out,
					[]string{"STEP", "OUTCOME", "ELAPSED", "ERROR"},
					rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
				return nil
			})
		},
	}
}

func formatRunElapsed(run *runstore.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
