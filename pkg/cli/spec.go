package cli

// ValueType is the Go type a command value is converted to.
type ValueType string

const (
	TypeString   ValueType = "string"
	TypeBool     ValueType = "bool"
	TypeInt      ValueType = "int"
	TypeFloat    ValueType = "float"
	TypeDuration ValueType = "duration"
	TypeStrings  ValueType = "strings"
)

// CommandSpec declares a command whose arguments and options are described by
// templates.
type CommandSpec struct {
	// Name is the command name as typed on the command line.
	Name string `json:"name" yaml:"name" validate:"required,excludesall= 0x7C<>[]"`

	// Short is the one-line description shown in command lists.
	Short string `json:"short,omitempty" yaml:"short,omitempty"`

	// Long is the full description shown in help output.
	Long string `json:"long,omitempty" yaml:"long,omitempty"`

	Arguments   []ArgumentSpec `json:"arguments,omitempty" yaml:"arguments,omitempty" validate:"dive"`
	Options     []OptionSpec   `json:"options,omitempty" yaml:"options,omitempty" validate:"dive"`
	Subcommands []CommandSpec  `json:"commands,omitempty" yaml:"commands,omitempty" validate:"dive"`
}

// ArgumentSpec declares a positional argument, e.g. {Position: 0, Template: "<ENV>"}.
type ArgumentSpec struct {
	Position    int       `json:"position" yaml:"position" validate:"gte=0"`
	Template    string    `json:"template" yaml:"template"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Default     string    `json:"default,omitempty" yaml:"default,omitempty"`
	Type        ValueType `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=string bool int float duration strings"`
}

// OptionSpec declares an option, e.g. {Template: "-c|--count <NUM>", Type: TypeInt}.
type OptionSpec struct {
	Template    string `json:"template" yaml:"template"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`

	// Implicit is the value used when an option with an optional placeholder
	// ([VALUE]) is given without one.
	Implicit string `json:"implicit,omitempty" yaml:"implicit,omitempty"`

	Type   ValueType `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=string bool int float duration strings"`
	Hidden bool      `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// valueType resolves the declared type, falling back to bool for flags and
// string otherwise.
func (o OptionSpec) valueType(isFlag bool) ValueType {
	if o.Type != "" {
		return o.Type
	}
	if isFlag {
		return TypeBool
	}
	return TypeString
}

func (a ArgumentSpec) valueType() ValueType {
	if a.Type != "" {
		return a.Type
	}
	return TypeString
}
