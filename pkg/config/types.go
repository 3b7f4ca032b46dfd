package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openfroyo/clitmpl/pkg/cli"
	"github.com/openfroyo/clitmpl/pkg/template"
)

// ManifestConfig is a command manifest as written in CUE or YAML.
type ManifestConfig struct {
	// Name is the program name, e.g. "deployctl".
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Version is the manifest version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Description is shown as the long help of the program.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Commands are the top-level commands.
	Commands []CommandConfig `json:"commands" yaml:"commands" validate:"dive"`
}

// CommandConfig declares one command of a manifest.
type CommandConfig struct {
	// Name is the command name as typed on the command line.
	Name string `json:"name" yaml:"name" validate:"required,excludesall= 0x7C<>[]"`

	// Short is the one-line description.
	Short string `json:"short,omitempty" yaml:"short,omitempty"`

	// Long is the full help text.
	Long string `json:"long,omitempty" yaml:"long,omitempty"`

	Arguments []ArgumentConfig `json:"arguments,omitempty" yaml:"arguments,omitempty" validate:"dive"`
	Options   []OptionConfig   `json:"options,omitempty" yaml:"options,omitempty" validate:"dive"`

	// Commands are nested subcommands.
	Commands []CommandConfig `json:"commands,omitempty" yaml:"commands,omitempty" validate:"dive"`
}

// ArgumentConfig declares a positional argument.
type ArgumentConfig struct {
	// Position defaults to the index of the argument in its list.
	Position *int `json:"position,omitempty" yaml:"position,omitempty" validate:"omitempty,gte=0"`

	// Template is the argument template, e.g. "<ENV>" or "[TARGET]".
	Template string `json:"template" yaml:"template"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=string bool int float duration strings"`
}

// OptionConfig declares an option.
type OptionConfig struct {
	// Template is the option template, e.g. "-c|--count <NUM>".
	Template string `json:"template" yaml:"template"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Implicit    string `json:"implicit,omitempty" yaml:"implicit,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=string bool int float duration strings"`
	Hidden      bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// ToSpec converts the command and its subcommands to a cli.CommandSpec.
func (c CommandConfig) ToSpec() cli.CommandSpec {
	spec := cli.CommandSpec{
		Name:  c.Name,
		Short: c.Short,
		Long:  c.Long,
	}
	for i, a := range c.Arguments {
		pos := i
		if a.Position != nil {
			pos = *a.Position
		}
		spec.Arguments = append(spec.Arguments, cli.ArgumentSpec{
			Position:    pos,
			Template:    a.Template,
			Description: a.Description,
			Default:     a.Default,
			Type:        cli.ValueType(a.Type),
		})
	}
	for _, o := range c.Options {
		spec.Options = append(spec.Options, cli.OptionSpec{
			Template:    o.Template,
			Description: o.Description,
			Default:     o.Default,
			Implicit:    o.Implicit,
			Type:        cli.ValueType(o.Type),
			Hidden:      o.Hidden,
		})
	}
	for _, sub := range c.Commands {
		spec.Subcommands = append(spec.Subcommands, sub.ToSpec())
	}
	return spec
}

// Error codes of ValidationErrors that do not come from the template
// grammar. Template errors carry template.ErrorKind.Code().
const (
	CodeSyntax           = "syntax"
	CodeSchema           = "schema"
	CodeDecode           = "decode"
	CodeInvalidField     = "invalid_field"
	CodeInvalidCommand   = "invalid_command"
	CodeDuplicateCommand = "duplicate_command"
)

// ValidationError represents a validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed). For template errors it points
	// at the offending token inside the string literal.
	Column int `json:"column,omitempty"`

	// Path locates the value, e.g. "commands[0].options[1].template".
	Path string `json:"path,omitempty"`

	// Code is a template error code such as "unterminated_value_name", or
	// one of the Code constants.
	Code string `json:"code"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning, info).
	Severity string `json:"severity" validate:"required,oneof=error warning info"`
}

// Error renders the error as file:line:col: code message.
func (e ValidationError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
			if e.Column > 0 {
				fmt.Fprintf(&b, ":%d", e.Column)
			}
		}
		b.WriteString(": ")
	} else if e.Path != "" {
		b.WriteString(e.Path + ": ")
	}
	if e.Code != "" {
		b.WriteString(e.Code + " ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// TemplateRef is a template of the manifest that parsed successfully.
type TemplateRef struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Path   string `json:"path"`

	// Command is the space separated command path.
	Command string `json:"command"`

	Grammar  template.Grammar         `json:"grammar"`
	Template string                   `json:"template"`
	Option   *template.OptionResult   `json:"option,omitempty"`
	Argument *template.ArgumentResult `json:"argument,omitempty"`
}

// ParsedManifest is the result of parsing one or more manifest sources.
type ParsedManifest struct {
	Manifest ManifestConfig `json:"manifest"`

	// SourceFiles are the files that were parsed.
	SourceFiles []string `json:"source_files"`

	// ParsedAt is when the manifest was parsed.
	ParsedAt time.Time `json:"parsed_at"`

	// Templates lists every template that parsed, in manifest order.
	Templates []TemplateRef `json:"templates,omitempty"`

	// Errors lists any validation errors.
	Errors []ValidationError `json:"errors,omitempty"`
}

// HasErrors reports whether any validation error was found.
func (pm *ParsedManifest) HasErrors() bool {
	return len(pm.Errors) > 0
}

// Err joins the validation errors, or returns nil.
func (pm *ParsedManifest) Err() error {
	if len(pm.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(pm.Errors))
	for i, e := range pm.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Specs converts the manifest's top-level commands to cli specs.
func (pm *ParsedManifest) Specs() []cli.CommandSpec {
	specs := make([]cli.CommandSpec, 0, len(pm.Manifest.Commands))
	for _, c := range pm.Manifest.Commands {
		specs = append(specs, c.ToSpec())
	}
	return specs
}

// RootSpec wraps the top-level commands in a root command named after the
// manifest.
func (pm *ParsedManifest) RootSpec() cli.CommandSpec {
	name := pm.Manifest.Name
	if name == "" {
		name = "manifest"
	}
	return cli.CommandSpec{
		Name:        name,
		Long:        pm.Manifest.Description,
		Subcommands: pm.Specs(),
	}
}

// ShortNames returns the short option names of every option declared
// directly on command, in manifest order.
func (pm *ParsedManifest) ShortNames(command string) []string {
	var names []string
	for _, ref := range pm.Templates {
		if ref.Command == command && ref.Option != nil {
			names = append(names, ref.Option.ShortNames...)
		}
	}
	return names
}
