package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openfroyo/clitmpl/pkg/config"
	"github.com/openfroyo/clitmpl/pkg/telemetry"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest...>",
		Short: "Validate command manifests",
		Long: `Validate CUE and YAML command manifests.

This command checks:
  - CUE and YAML syntax
  - Schema conformance
  - Every argument and option template
  - Rules across templates, such as option names used twice

Any error is fatal. Errors are printed as file:line:col: code message.
All sources given are merged into one manifest; directories contribute their
CUE package and YAML files.`,
		Example: `  # Validate one manifest
  clitmpl validate deployctl.yaml

  # Validate a directory of manifests
  clitmpl validate ./manifests`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			log.Debug().Strs("sources", args).Msg("Validating manifests")

			telCfg := toolConfig.Telemetry
			_, ctx, shutdown, err := startTelemetry(cmd.Context(), &telCfg)
			if err != nil {
				return err
			}
			defer shutdown()

			op := telemetry.StartOperation(ctx, "manifest.validate", attribute.StringSlice("manifest.sources", args))
			defer func() { op.End(err) }()

			pm, err := config.NewManifestParser().Parse(op.Ctx, args)
			if err != nil {
				return err
			}
			op.Logger.WithFields(map[string]interface{}{
				"files":     len(pm.SourceFiles),
				"templates": len(pm.Templates),
				"errors":    len(pm.Errors),
				"duration":  op.Timer.Duration().String(),
			}).Debug("manifests parsed")

			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := printJSON(out, pm); err != nil {
					return err
				}
			} else {
				for _, ve := range pm.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), ve.Error())
				}
			}

			if pm.HasErrors() {
				if !jsonOutput {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d errors in %d files\n", len(pm.Errors), len(pm.SourceFiles))
				}
				return ErrFailed
			}

			if !jsonOutput {
				name := pm.Manifest.Name
				if name == "" {
					name = "manifest"
				}
				fmt.Fprintf(out, "%s: %d commands, %d templates OK\n", name, countCommands(pm.Manifest.Commands), len(pm.Templates))
			}
			return nil
		},
	}

	return cmd
}

func countCommands(cmds []config.CommandConfig) int {
	n := len(cmds)
	for _, c := range cmds {
		n += countCommands(c.Commands)
	}
	return n
}
