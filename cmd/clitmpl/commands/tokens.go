package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/clitmpl/pkg/template"
)

func newTokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens <template>",
		Short: "Print the tokens of a template",
		Long: `Tokenize a template without applying either grammar.

Each line shows the byte offset, the token kind, the name or value and the raw
text of one token.`,
		Example: `  clitmpl tokens -- '-f|--foo <NUM>'
  clitmpl tokens '[TARGET]' --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := template.Tokenize(args[0])
			if err != nil {
				return reportTemplateError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				type jsonToken struct {
					Kind           string `json:"kind"`
					Value          string `json:"value"`
					Position       int    `json:"position"`
					Representation string `json:"representation"`
				}
				list := make([]jsonToken, len(tokens))
				for i, tok := range tokens {
					list[i] = jsonToken{tok.Kind.String(), tok.Value, tok.Position, tok.Representation}
				}
				return printJSON(out, list)
			}

			for _, tok := range tokens {
				fmt.Fprintf(out, "%3d  %-14s %-12q %s\n", tok.Position, tok.Kind, tok.Value, tok.Representation)
			}
			return nil
		},
	}

	return cmd
}
