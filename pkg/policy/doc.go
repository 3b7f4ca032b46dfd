// Package policy checks parsed command-line templates against naming
// conventions written in Rego and evaluated with Open Policy Agent.
//
// Each policy is a Rego v1 module defining a "deny" set. A deny element is
// either a message string or an object with a "message" and an optional
// "severity" overriding the policy default. The input document is an
// [Input]: the template text, its grammar and the parse result of either
// an option or an argument template.
//
// Three policies are built in:
//
//   - long-option-kebab-case: long option names are lowercase words
//     joined by hyphens.
//   - value-name-upper-case: argument value names are upper case.
//   - no-duplicate-short-names: a short name appears on one option of a
//     command only. It needs Input.CommandShortNames.
//
// Usage:
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	res := template.MustParseOptionTemplate("--dryRun")
//	result, err := eng.Evaluate(ctx, policy.OptionInput("--dryRun", res, nil))
//
// Policies loaded from .rego or .json files (a single policy or a bundle)
// replace built-ins of the same name. [Engine.Watch] reloads them when the
// files change.
package policy
