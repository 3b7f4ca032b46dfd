package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/clitmpl/pkg/cli"
	"github.com/openfroyo/clitmpl/pkg/config"
	"github.com/openfroyo/clitmpl/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <manifest> [-- args...]",
		Short: "Run a command manifest",
		Long: `Build a command tree from a manifest and execute it with the given
arguments.

The invoked command prints the values bound from its arguments and options as
JSON. This is useful to try a manifest out before wiring it into a program.`,
		Example: `  # Invoke the deploy command of a manifest
  clitmpl run deployctl.yaml -- deploy prod --count 3

  # Show the generated help
  clitmpl run deployctl.yaml -- deploy --help`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			telCfg := toolConfig.Telemetry
			_, ctx, shutdown, err := startTelemetry(cmd.Context(), &telCfg)
			if err != nil {
				return err
			}
			defer shutdown()

			op := telemetry.StartOperation(ctx, "manifest.run", telemetry.AttrFilePath.String(args[0]))
			defer func() { op.End(err) }()
			ctx = op.Ctx

			pm, err := config.NewManifestParser().Parse(ctx, args[:1])
			if err != nil {
				return err
			}
			if pm.HasErrors() {
				for _, ve := range pm.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), ve.Error())
				}
				return ErrFailed
			}

			compiled, err := cli.Compile(pm.RootSpec())
			if err != nil {
				return fmt.Errorf("failed to register commands: %w", err)
			}

			out := cmd.OutOrStdout()
			tree := compiled.Cobra(func(_ context.Context, values *cli.Values) error {
				op.Logger.WithField("command", values.Command).Debug("command invoked")
				return printJSON(out, values)
			})
			tree.SetArgs(args[1:])
			tree.SetOut(out)
			tree.SetErr(cmd.ErrOrStderr())

			return tree.ExecuteContext(ctx)
		},
	}

	return cmd
}
