package policy

import (
	"time"

	"github.com/openfroyo/clitmpl/pkg/template"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for conventions that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for violations that fail a strict check.
	SeverityError Severity = "error"
)

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code (Rego v1 syntax). The package must
	// define a "deny" set.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata, such as the source file.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Bundle is a JSON file holding several policies.
type Bundle struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Policies    []Policy `json:"policies"`
}

// Input is the document a policy sees as input. Exactly one of Option and
// Argument is set.
type Input struct {
	// Template is the template text as written.
	Template string `json:"template"`

	// Grammar is "argument" or "option".
	Grammar template.Grammar `json:"grammar"`

	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`

	Option   *template.OptionResult   `json:"option,omitempty"`
	Argument *template.ArgumentResult `json:"argument,omitempty"`

	// CommandShortNames lists the short names of every option of the
	// enclosing command, this option's included.
	CommandShortNames []string `json:"command_short_names,omitempty"`
}

// OptionInput builds the input for a parsed option template.
func OptionInput(tmpl string, res *template.OptionResult, commandShortNames []string) *Input {
	return &Input{
		Template:          tmpl,
		Grammar:           template.OptionGrammar,
		Option:            res,
		CommandShortNames: commandShortNames,
	}
}

// ArgumentInput builds the input for a parsed argument template.
func ArgumentInput(tmpl string, res *template.ArgumentResult) *Input {
	return &Input{
		Template: tmpl,
		Grammar:  template.ArgumentGrammar,
		Argument: res,
	}
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`

	// Template, File and Line locate the offending template.
	Template string `json:"template"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// Result represents the result of evaluating every enabled policy against
// one input.
type Result struct {
	// Violations lists all policy violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}
