package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/clitmpl/pkg/template"
)

func newParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a single template",
		Long: `Parse an argument or option template and print the result.

A malformed template prints the error with a caret under the offending part
and exits with status 1. Put "--" before templates that start with a dash.`,
	}

	cmd.AddCommand(newParseGrammarCommand(template.ArgumentGrammar, `  # Required argument
  clitmpl parse argument '<ENV>'

  # Optional argument as JSON
  clitmpl parse argument '[TARGET]' --json`))
	cmd.AddCommand(newParseGrammarCommand(template.OptionGrammar, `  # Option with aliases and a value
  clitmpl parse option -- '-c|--count <NUM>'

  # Option as YAML
  clitmpl parse option --yaml -- '--color [WHEN]'`))

	return cmd
}

func newParseGrammarCommand(g template.Grammar, example string) *cobra.Command {
	var yamlOutput bool

	cmd := &cobra.Command{
		Use:     string(g) + " <template>",
		Short:   fmt.Sprintf("Parse an %s template", g),
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl := args[0]
			log.Debug().
				Str("grammar", string(g)).
				Str("template", tmpl).
				Msg("Parsing template")

			res, err := g.Parse(tmpl)
			if err != nil {
				return reportTemplateError(cmd, err)
			}

			out := cmd.OutOrStdout()
			switch {
			case jsonOutput:
				return printJSON(out, res)
			case yamlOutput:
				return printYAML(out, res)
			}

			switch r := res.(type) {
			case *template.ArgumentResult:
				printArgument(out, r)
			case *template.OptionResult:
				printOption(out, r)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yamlOutput, "yaml", false, "output in YAML format")

	return cmd
}

// reportTemplateError prints a template error and returns ErrFailed.
func reportTemplateError(cmd *cobra.Command, err error) error {
	var te *template.Error
	if !errors.As(err, &te) {
		return err
	}
	if jsonOutput {
		if perr := printJSON(cmd.OutOrStdout(), map[string]any{
			"error": te,
			"code":  te.Kind.Code(),
		}); perr != nil {
			return perr
		}
		return ErrFailed
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "error[%s]: %s", te.Kind.Code(), strings.TrimPrefix(te.Pretty(), "Error: "))
	return ErrFailed
}

func printArgument(w io.Writer, r *template.ArgumentResult) {
	fmt.Fprintf(w, "value:    %s\n", r.Value)
	fmt.Fprintf(w, "required: %t\n", r.Required)
}

func printOption(w io.Writer, r *template.OptionResult) {
	fmt.Fprintf(w, "long names:  %s\n", joinNames(r.LongNames, "--"))
	fmt.Fprintf(w, "short names: %s\n", joinNames(r.ShortNames, "-"))
	switch {
	case !r.HasValue:
		fmt.Fprintln(w, "value:       none")
	case r.ValueIsOptional:
		fmt.Fprintf(w, "value:       %s (optional)\n", r.Value)
	default:
		fmt.Fprintf(w, "value:       %s (required)\n", r.Value)
	}
}

func joinNames(names []string, prefix string) string {
	if len(names) == 0 {
		return "none"
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return strings.Join(out, ", ")
}
