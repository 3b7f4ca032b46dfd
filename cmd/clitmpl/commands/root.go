package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/clitmpl/pkg/config"
	"github.com/openfroyo/clitmpl/pkg/telemetry"
)

// ErrFailed is returned when a command has already reported its failure,
// such as a malformed template or a failed check.
var ErrFailed = errors.New("command failed")

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	toolConfig *config.ToolConfig
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clitmpl",
		Short: "Command line template parser and checker",
		Long: `clitmpl parses the templates that declare command line arguments and
options, such as "<ENV>" or "-c|--count <NUM>".

Features:
  - Parse and tokenize single templates
  - Check Go struct tags and command manifests for malformed templates
  - Validate CUE and YAML command manifests
  - Run a manifest as a command tree
  - Naming policies via OPA/rego
  - Check history in SQLite`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			cfg, err := config.LoadToolConfig(configPath)
			if err != nil {
				return err
			}
			toolConfig = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default "+config.DefaultToolConfigFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newTokensCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newReportCommand())

	return rootCmd
}

// startTelemetry builds the telemetry bundle and returns it with a context
// carrying it. The returned func shuts it down.
func startTelemetry(ctx context.Context, cfg *telemetry.Config) (*telemetry.Telemetry, context.Context, func(), error) {
	if verbose {
		cfg.Logging.Level = "debug"
	}
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}
	return tel, tel.WithContext(ctx), shutdown, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
