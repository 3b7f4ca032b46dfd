package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/clitmpl/pkg/checker"
	"github.com/openfroyo/clitmpl/pkg/config"
	"github.com/openfroyo/clitmpl/pkg/policy"
	"github.com/openfroyo/clitmpl/pkg/stores"
	"github.com/openfroyo/clitmpl/pkg/telemetry"
)

func newCheckCommand() *cobra.Command {
	var (
		strict      bool
		storePath   string
		metricsFile string
		policyPaths []string
		watch       bool
		workers     int
		noManifests bool
		events      bool
		eventsLevel string
		eventTypes  []string
	)

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check sources and manifests for malformed templates",
		Long: `Check Go struct tags and command manifests below the given paths.

Every malformed template is reported with its file, line and column:
  - argument:"pos,<T>" and option:"<T>" tags in .go files (warnings)
  - templates in .cue, .yaml and .yml manifests that declare commands (errors)
  - naming policy violations, when policies are enabled

The check fails on errors, or on any finding with --strict.`,
		Example: `  # Check the current module
  clitmpl check

  # Fail on warnings too and record the run
  clitmpl check --strict --store .clitmpl/history.db ./...

  # Apply extra naming policies
  clitmpl check --policy ./policies

  # Re-check on every change
  clitmpl check --watch ./cmd ./manifests

  # Stream error and warning events as JSON lines on stderr
  clitmpl check --events --events-level warning`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := *toolConfig

			paths := trimPatterns(args)
			if len(paths) == 0 {
				paths = []string{"."}
			}
			if cmd.Flags().Changed("strict") {
				cfg.Check.Strict = strict
			}
			if cmd.Flags().Changed("workers") {
				cfg.Check.Workers = workers
			}
			if noManifests {
				cfg.Check.Manifests = false
			}
			if storePath != "" {
				cfg.Store.Enabled = true
				cfg.Store.Path = storePath
			}
			if len(policyPaths) > 0 {
				cfg.Policy.Enabled = true
				cfg.Policy.Paths = append(cfg.Policy.Paths, policyPaths...)
			}
			if metricsFile != "" {
				cfg.Telemetry.Metrics.Enabled = true
				cfg.Telemetry.Metrics.TextfilePath = metricsFile
			}
			if events {
				if !telemetry.ValidEventLevel(eventsLevel) {
					return fmt.Errorf("invalid events level %q (want info, warning or error)", eventsLevel)
				}
				cfg.Telemetry.Events.Enabled = true
			}

			log.Info().
				Strs("paths", paths).
				Bool("strict", cfg.Check.Strict).
				Bool("watch", watch).
				Msg("Checking templates")

			tel, ctx, shutdown, err := startTelemetry(ctx, &cfg.Telemetry)
			if err != nil {
				return err
			}
			defer shutdown()
			if events {
				byLevel := telemetry.FilterByLevel(eventsLevel)
				filter := byLevel
				if len(eventTypes) > 0 {
					byType := telemetry.FilterByType(eventTypes...)
					filter = func(e telemetry.Event) bool { return byLevel(e) && byType(e) }
				}
				tel.Events.Subscribe(telemetry.NewJSONSubscriber(cmd.ErrOrStderr()), filter)
			}

			checkCfg := checker.Config{
				Workers:   cfg.Check.Workers,
				Exclude:   cfg.Check.Exclude,
				Manifests: cfg.Check.Manifests,
				Telemetry: tel,
			}

			if cfg.Policy.Enabled {
				engine, err := newPolicyEngine(ctx, tel, cfg.Policy)
				if err != nil {
					return err
				}
				if watch && len(cfg.Policy.Paths) > 0 {
					if err := engine.Watch(ctx, cfg.Policy.Paths); err != nil {
						return err
					}
				}
				checkCfg.Policy = engine
			}

			if cfg.Store.Enabled {
				store, err := openStore(ctx, cfg.Store.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				checkCfg.Store = store
				defer func() {
					if cfg.Store.Keep <= 0 {
						return
					}
					pruned, err := store.PruneRuns(context.WithoutCancel(ctx), cfg.Store.Keep)
					if err != nil {
						log.Warn().Err(err).Msg("Failed to prune check history")
						return
					}
					log.Debug().Int64("pruned", pruned).Msg("Pruned check history")
				}()
			}

			c := checker.New(checkCfg)
			out := cmd.OutOrStdout()

			if watch {
				tel.StartMetricsServer()
				return c.Watch(ctx, paths, func(report *checker.Report, err error) {
					if err != nil {
						log.Error().Err(err).Msg("Check failed")
						return
					}
					if err := printReport(out, report); err != nil {
						log.Error().Err(err).Msg("Failed to print report")
					}
				})
			}

			report, err := c.Check(ctx, paths)
			if err != nil {
				return err
			}
			if err := printReport(out, report); err != nil {
				return err
			}
			if report.Failed(cfg.Check.Strict) {
				return ErrFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail on any finding, warnings included")
	cmd.Flags().StringVar(&storePath, "store", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write metrics in textfile format to this path")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "policy files or directories (enables policies)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-check whenever a file changes")
	cmd.Flags().IntVar(&workers, "workers", 0, "files checked concurrently (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&noManifests, "no-manifests", false, "check Go files only")
	cmd.Flags().BoolVar(&events, "events", false, "stream check events as JSON lines on stderr")
	cmd.Flags().StringVar(&eventsLevel, "events-level", "info", "minimum level of streamed events (info, warning, error)")
	cmd.Flags().StringSliceVar(&eventTypes, "events-type", nil, "only stream these event types, e.g. check.completed")

	return cmd
}

// trimPatterns turns go tool patterns such as ./... into plain directories.
func trimPatterns(args []string) []string {
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		if filepath.Base(arg) == "..." {
			arg = filepath.Dir(arg)
		}
		paths = append(paths, arg)
	}
	return paths
}

func newPolicyEngine(ctx context.Context, tel *telemetry.Telemetry, cfg config.PolicyConfig) (*policy.Engine, error) {
	engine, err := policy.NewEngine(*tel.Logger.NewComponentLogger("policy").Zerolog())
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if len(cfg.Paths) > 0 {
		if err := engine.LoadPolicies(ctx, cfg.Paths); err != nil {
			return nil, fmt.Errorf("failed to load policies: %w", err)
		}
	}
	for _, name := range cfg.Disabled {
		if err := engine.DisablePolicy(name); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// openStore opens the check history, creating its directory.
func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	store, err := stores.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open check history: %w", err)
	}
	return store, nil
}

func printReport(w io.Writer, report *checker.Report) error {
	if jsonOutput {
		return printJSON(w, report)
	}
	for _, f := range report.Findings {
		fmt.Fprintln(w, f)
	}
	fmt.Fprintf(w, "%d files checked: %d errors, %d warnings, %d info (%s)\n",
		report.Files,
		report.Count(checker.SeverityError),
		report.Count(checker.SeverityWarning),
		report.Count(checker.SeverityInfo),
		report.Duration.Round(time.Millisecond))
	return nil
}
