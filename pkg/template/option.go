package template

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// OptionResult describes a named option template.
type OptionResult struct {
	// LongNames and ShortNames keep the order of appearance.
	LongNames  []string `json:"long_names" yaml:"long_names"`
	ShortNames []string `json:"short_names" yaml:"short_names"`

	// Value is the upper-cased placeholder name. It is only meaningful when
	// HasValue is set.
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	HasValue bool   `json:"has_value" yaml:"has_value"`

	// ValueIsOptional is true when the placeholder used [NAME].
	ValueIsOptional bool `json:"value_is_optional" yaml:"value_is_optional"`
}

// IsFlag reports whether the option takes no value.
func (o *OptionResult) IsFlag() bool {
	return !o.HasValue
}

// ParseOptionTemplate parses a template such as "-f|--foo <NUM>".
// The template needs at least one long or short name and may carry a single
// value placeholder. Any error returned is a *Error.
func ParseOptionTemplate(template string) (*OptionResult, error) {
	tokens, err := Tokenize(template)
	if err != nil {
		return nil, err
	}

	result := &OptionResult{
		LongNames:  []string{},
		ShortNames: []string{},
	}

	for _, tok := range tokens {
		switch tok.Kind {
		case LongName:
			if err := validateOptionName(template, tok); err != nil {
				return nil, err
			}
			if utf8.RuneCountInString(tok.Value) == 1 {
				return nil, newLongOptionMustHaveMoreThanOneCharacter(template, tok)
			}
			result.LongNames = append(result.LongNames, tok.Value)

		case ShortName:
			if err := validateOptionName(template, tok); err != nil {
				return nil, err
			}
			if utf8.RuneCountInString(tok.Value) > 1 {
				return nil, newShortOptionMustOnlyBeOneCharacter(template, tok)
			}
			result.ShortNames = append(result.ShortNames, tok.Value)

		case RequiredValue, OptionalValue:
			if result.HasValue {
				return nil, newMultipleOptionValuesAreNotSupported(template, tok)
			}
			for _, c := range tok.Value {
				if !isLetterOrDigit(c) && c != '=' && c != '-' && c != '_' {
					return nil, newInvalidCharacterInValueName(template, tok, c)
				}
			}
			result.Value = strings.ToUpper(tok.Value)
			result.HasValue = true
			result.ValueIsOptional = tok.Kind == OptionalValue

		case Literal:
			// bare text carries no meaning in an option template
		}
	}

	if len(result.LongNames) == 0 && len(result.ShortNames) == 0 {
		return nil, newMissingLongAndShortName(template)
	}

	return result, nil
}

// MustParseOptionTemplate is like ParseOptionTemplate but panics on error.
func MustParseOptionTemplate(template string) *OptionResult {
	result, err := ParseOptionTemplate(template)
	if err != nil {
		panic(`template: ParseOptionTemplate(` + quote(template) + `): ` + err.Error())
	}
	return result
}

func validateOptionName(template string, tok Token) error {
	if strings.TrimSpace(tok.Value) == "" {
		return newOptionsMustHaveName(template, tok)
	}

	first, _ := utf8.DecodeRuneInString(tok.Value)
	if unicode.IsDigit(first) {
		return newOptionNamesCannotStartWithDigit(template, tok)
	}

	for _, c := range tok.Value {
		if !isLetterOrDigit(c) && c != '-' && c != '_' {
			return newInvalidCharacterInOptionName(template, tok, c)
		}
	}
	return nil
}

func isLetterOrDigit(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c)
}

func quote(s string) string {
	return strconv.Quote(s)
}
