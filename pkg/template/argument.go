package template

import "strings"

// ArgumentResult describes a positional argument template.
type ArgumentResult struct {
	// Value is the placeholder name exactly as written.
	Value string `json:"value" yaml:"value"`

	// Required is true for <NAME> and false for [NAME].
	Required bool `json:"required" yaml:"required"`
}

// ParseArgumentTemplate parses a template such as "<NAME>" or "[NAME]".
// The template must hold exactly one named placeholder and no flag names.
// Any error returned is a *Error.
func ParseArgumentTemplate(template string) (*ArgumentResult, error) {
	tokens, err := Tokenize(template)
	if err != nil {
		return nil, err
	}

	var (
		valueName string
		captured  bool
		required  bool
	)

	for _, tok := range tokens {
		switch tok.Kind {
		case ShortName, LongName:
			return nil, newArgumentCannotContainOptions(template, tok)

		case RequiredValue, OptionalValue:
			if captured {
				return nil, newMultipleValuesAreNotSupported(template, tok)
			}
			if strings.TrimSpace(tok.Value) == "" {
				return nil, newValuesMustHaveName(template, tok)
			}
			valueName = tok.Value
			required = tok.Kind == RequiredValue
			captured = true

		case Literal:
			// bare text carries no meaning in an argument template
		}
	}

	if !captured {
		return nil, newArgumentsMustHaveValueName(template)
	}

	return &ArgumentResult{Value: valueName, Required: required}, nil
}

// MustParseArgumentTemplate is like ParseArgumentTemplate but panics on error.
func MustParseArgumentTemplate(template string) *ArgumentResult {
	result, err := ParseArgumentTemplate(template)
	if err != nil {
		panic(`template: ParseArgumentTemplate(` + quote(template) + `): ` + err.Error())
	}
	return result
}
