package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gapipe/internal/fitter"
	"gapipe/internal/gapipe"
	"gapipe/internal/logging"
	"gapipe/internal/pipeline"
	"gapipe/internal/repo"
	"gapipe/internal/runstore"
	"gapipe/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var failFast bool
	var allowCollisions bool

	cmd := &cobra.Command{
		Use:   "run <object-config> [overrides...]",
		Short: "Process one object through the pipeline",
		Long: "Run the pipeline for a single object. Configuration sources are " +
			"deep-merged left to right; later files override earlier ones.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			obj, err := gapipe.LoadObjectConfig(args, allowCollisions)
			if err != nil {
				return err
			}
			if obj.RerunDir != "" {
				cfg.Paths.RerunDir = obj.RerunDir
			}
			identity := obj.Identity()

			registry, err := gapipe.NewRegistry()
			if err != nil {
				return err
			}

			// The run log lives in the working directory. The directory is
			// created by the pipeline's init step, after validation; the log
			// file opens lazily once it exists.
			workdir, err := gapipe.NewWorkdir(repo.NewRepository(registry, cfg.Variables(), nil), identity)
			if err != nil {
				return err
			}
			logger, logCloser, err := logging.NewForRun(cfg.Logging.Level, cfg.Logging.Format, workdir.LogFile)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			repository := repo.NewRepository(registry, cfg.Variables(), logger)
			fitters := fitter.New(cfg.Fitter.Binary,
				time.Duration(cfg.Fitter.TimeoutSeconds)*time.Second, logger).Fitters()

			p, err := gapipe.New(cfg, obj, repository, fitters, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			var trace pipeline.Trace
			if cfg.Ledger.Enabled && cfg.Pipeline.TraceEnabled {
				store, err := runstore.Open(cfg.LedgerPath())
				if err != nil {
					return fmt.Errorf("open run ledger: %w", err)
				}
				defer store.Close()
				trace = runstore.NewRecorder(store, logger)
			}

			engine := pipeline.New(pipeline.Options{
				Logger:   logger,
				Trace:    trace,
				FailFast: failFast || cfg.Pipeline.FailFast,
			})

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runCtx = services.WithObject(runCtx, identity.String())

			summary, err := engine.Execute(runCtx, pipeline.Run{
				Pipeline:      p,
				Config:        obj,
				Repo:          repository,
				ExceptionFile: workdir.TracebackFile(),
			})
			if err != nil {
				return err
			}

			printRunSummary(cmd, identity.String(), summary, workdir.TracebackFile())
			if !summary.Success {
				return fmt.Errorf("run %s finished with %d failed step(s)", summary.RunID, len(summary.Failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Abort on the first step failure instead of containing it")
	cmd.Flags().BoolVar(&allowCollisions, "allow-collisions", false, "Let later config sources override scalar values from earlier ones")
	return cmd
}

func printRunSummary(cmd *cobra.Command, object string, summary pipeline.Summary, tracebackFile string) {
	out := cmd.OutOrStdout()
	status := "succeeded"
	if !summary.Success {
		status = "failed"
	}
	fmt.Fprintf(out, "Run %s %s: object %s, %d steps in %s\n",
		summary.RunID, status, object, summary.StepsRun, summary.Elapsed.Round(time.Millisecond))
	for _, failure := range summary.Failures {
		fmt.Fprintf(out, "  %s: %v\n", humanStepLabel(failure.Step), failure.Err)
	}
	if len(summary.Failures) > 0 {
		// A run that failed before its working directory was created has
		// no traceback file to point at.
		if _, err := os.Stat(tracebackFile); err == nil {
			fmt.Fprintf(out, "Stack traces appended to %s\n", tracebackFile)
		}
	}
}
