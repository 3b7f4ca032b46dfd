package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openfroyo/clitmpl/pkg/template"
)

var validate = validator.New()

// reservedNames are claimed by cobra's help flag.
var reservedNames = map[string]bool{"help": true, "h": true}

// Argument is a compiled positional argument.
type Argument struct {
	Position    int
	Name        string
	Required    bool
	Type        ValueType
	Description string
	Default     string
	Template    string
}

// Variadic reports whether the argument collects every remaining value.
func (a Argument) Variadic() bool {
	return a.Type == TypeStrings
}

// Option is a compiled option.
type Option struct {
	LongNames       []string
	ShortNames      []string
	ValueName       string
	HasValue        bool
	ValueIsOptional bool
	Type            ValueType
	Description     string
	Default         string
	Implicit        string
	Hidden          bool
	Template        string
}

// Name returns the primary name: the first long name, else the first short
// name. Values are keyed by it.
func (o Option) Name() string {
	if len(o.LongNames) > 0 {
		return o.LongNames[0]
	}
	return o.ShortNames[0]
}

// Names returns every long and short name of the option.
func (o Option) Names() []string {
	names := make([]string, 0, len(o.LongNames)+len(o.ShortNames))
	names = append(names, o.LongNames...)
	return append(names, o.ShortNames...)
}

// Command is a CommandSpec whose templates have all been parsed and checked.
type Command struct {
	Name  string
	Path  string
	Short string
	Long  string

	// Arguments are ordered by position.
	Arguments []Argument

	// Options keep declaration order.
	Options []Option

	Subcommands []*Command
}

// Compile parses every template in spec and checks that they fit together.
// Any failure aborts registration and is returned as a *RegistrationError.
func Compile(spec CommandSpec) (*Command, error) {
	return compile(spec, "")
}

func compile(spec CommandSpec, parent string) (*Command, error) {
	path := strings.TrimSpace(parent + " " + spec.Name)

	if err := validate.Struct(spec); err != nil {
		return nil, newSpecError(path, "", fmt.Errorf("invalid command spec: %w", err))
	}

	cmd := &Command{
		Name:  spec.Name,
		Path:  path,
		Short: spec.Short,
		Long:  spec.Long,
	}

	for i, as := range spec.Arguments {
		arg, err := compileArgument(path, fmt.Sprintf("arguments[%d]", i), as)
		if err != nil {
			return nil, err
		}
		cmd.Arguments = append(cmd.Arguments, arg)
	}
	for i, ospec := range spec.Options {
		opt, err := compileOption(path, fmt.Sprintf("options[%d]", i), ospec)
		if err != nil {
			return nil, err
		}
		cmd.Options = append(cmd.Options, opt)
	}

	if err := checkArguments(cmd); err != nil {
		return nil, err
	}
	if err := checkOptions(cmd); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, ss := range spec.Subcommands {
		if seen[ss.Name] {
			return nil, newRuleError(path, "commands", ss.Name, ErrDuplicateCommand)
		}
		seen[ss.Name] = true

		sub, err := compile(ss, path)
		if err != nil {
			return nil, err
		}
		cmd.Subcommands = append(cmd.Subcommands, sub)
	}

	return cmd, nil
}

func compileArgument(path, field string, spec ArgumentSpec) (Argument, error) {
	res, err := template.ParseArgumentTemplate(spec.Template)
	if err != nil {
		return Argument{}, newTemplateError(path, field, spec.Template, err)
	}

	arg := Argument{
		Position:    spec.Position,
		Name:        res.Value,
		Required:    res.Required,
		Type:        spec.valueType(),
		Description: spec.Description,
		Default:     spec.Default,
		Template:    spec.Template,
	}
	if arg.Default != "" {
		if _, err := convert(arg.Type, arg.Default); err != nil {
			return Argument{}, newRuleError(path, field, spec.Template, fmt.Errorf("%w: %v", ErrInvalidDefault, err))
		}
	}
	return arg, nil
}

func compileOption(path, field string, spec OptionSpec) (Option, error) {
	res, err := template.ParseOptionTemplate(spec.Template)
	if err != nil {
		return Option{}, newTemplateError(path, field, spec.Template, err)
	}

	opt := Option{
		LongNames:       res.LongNames,
		ShortNames:      res.ShortNames,
		ValueName:       res.Value,
		HasValue:        res.HasValue,
		ValueIsOptional: res.ValueIsOptional,
		Type:            spec.valueType(res.IsFlag()),
		Description:     spec.Description,
		Default:         spec.Default,
		Implicit:        spec.Implicit,
		Hidden:          spec.Hidden,
		Template:        spec.Template,
	}

	if !opt.HasValue && opt.Type != TypeBool {
		return Option{}, newRuleError(path, field, spec.Template, ErrFlagMustBeBool)
	}
	if opt.ValueIsOptional && opt.Type != TypeBool && opt.Implicit == "" {
		return Option{}, newRuleError(path, field, spec.Template, ErrImplicitValueRequired)
	}
	for _, raw := range []string{opt.Default, opt.Implicit} {
		if raw == "" {
			continue
		}
		if _, err := convert(opt.Type, raw); err != nil {
			return Option{}, newRuleError(path, field, spec.Template, fmt.Errorf("%w: %v", ErrInvalidDefault, err))
		}
	}
	return opt, nil
}

// checkArguments sorts arguments by position and enforces the positional
// rules: unique contiguous positions, required before optional, and a single
// trailing variadic argument.
func checkArguments(cmd *Command) error {
	sort.SliceStable(cmd.Arguments, func(i, j int) bool {
		return cmd.Arguments[i].Position < cmd.Arguments[j].Position
	})

	names := make(map[string]bool)
	optional := false
	for i, arg := range cmd.Arguments {
		field := fmt.Sprintf("position %d", arg.Position)
		switch {
		case i > 0 && cmd.Arguments[i-1].Position == arg.Position:
			return newRuleError(cmd.Path, field, arg.Template, ErrDuplicatePosition)
		case arg.Position != i:
			return newRuleError(cmd.Path, field, arg.Template, ErrPositionGap)
		case arg.Required && optional:
			return newRuleError(cmd.Path, field, arg.Template, ErrRequiredAfterOptional)
		case arg.Variadic() && i != len(cmd.Arguments)-1:
			return newRuleError(cmd.Path, field, arg.Template, ErrVariadicNotLast)
		case names[arg.Name]:
			return newRuleError(cmd.Path, field, arg.Template, ErrDuplicateValueName)
		}
		optional = optional || !arg.Required
		names[arg.Name] = true
	}
	return nil
}

func checkOptions(cmd *Command) error {
	taken := make(map[string]bool)
	for _, arg := range cmd.Arguments {
		taken[arg.Name] = true
	}

	names := make(map[string]bool)
	for i, opt := range cmd.Options {
		field := fmt.Sprintf("options[%d]", i)
		for _, n := range opt.Names() {
			if reservedNames[n] {
				return newRuleError(cmd.Path, field, opt.Template, fmt.Errorf("%w: %s", ErrReservedOptionName, n))
			}
			if names[n] {
				return newRuleError(cmd.Path, field, opt.Template, fmt.Errorf("%w: %s", ErrDuplicateOptionName, n))
			}
			names[n] = true
		}
		if taken[opt.Name()] {
			return newRuleError(cmd.Path, field, opt.Template, fmt.Errorf("%w: %s", ErrDuplicateValueName, opt.Name()))
		}
	}
	return nil
}

// convert turns a raw command line value into the Go value for typ.
func convert(typ ValueType, raw string) (any, error) {
	switch typ {
	case TypeString, "":
		return raw, nil
	case TypeBool:
		return strconv.ParseBool(raw)
	case TypeInt:
		return strconv.Atoi(raw)
	case TypeFloat:
		return strconv.ParseFloat(raw, 64)
	case TypeDuration:
		return time.ParseDuration(raw)
	case TypeStrings:
		if raw == "" {
			return []string{}, nil
		}
		return strings.Split(raw, ","), nil
	default:
		return nil, fmt.Errorf("unknown value type %q", typ)
	}
}

// Use renders the cobra usage line, e.g. "deploy <ENV> [TAGS]...".
func (c *Command) Use() string {
	var b strings.Builder
	b.WriteString(c.Name)
	for _, arg := range c.Arguments {
		if arg.Required {
			fmt.Fprintf(&b, " <%s>", arg.Name)
		} else {
			fmt.Fprintf(&b, " [%s]", arg.Name)
		}
		if arg.Variadic() {
			b.WriteString("...")
		}
	}
	return b.String()
}

// Find returns the compiled command at the given space separated path
// relative to c, or nil.
func (c *Command) Find(path string) *Command {
	cur := c
	for _, name := range strings.Fields(path) {
		var next *Command
		for _, sub := range cur.Subcommands {
			if sub.Name == name {
				next = sub
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}
