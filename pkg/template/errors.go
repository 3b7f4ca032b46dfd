package template

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorKind identifies one rule a template can violate. The set is closed.
type ErrorKind int

const (
	// UnterminatedValueName is the only lexical error: a < or [ without its
	// closing delimiter.
	UnterminatedValueName ErrorKind = iota + 1

	// Argument grammar
	ArgumentCannotContainOptions
	MultipleValuesAreNotSupported
	ValuesMustHaveName
	ArgumentsMustHaveValueName

	// Option grammar
	OptionsMustHaveName
	OptionNamesCannotStartWithDigit
	InvalidCharacterInOptionName
	LongOptionMustHaveMoreThanOneCharacter
	ShortOptionMustOnlyBeOneCharacter
	MultipleOptionValuesAreNotSupported
	InvalidCharacterInValueName
	MissingLongAndShortName
)

type kindInfo struct {
	name  string
	code  string
	label string
}

var kindInfos = [...]kindInfo{
	UnterminatedValueName:                  {"UnterminatedValueName", "unterminated_value_name", "Unterminated value name"},
	ArgumentCannotContainOptions:           {"ArgumentCannotContainOptions", "argument_cannot_contain_options", "Option in argument template"},
	MultipleValuesAreNotSupported:          {"MultipleValuesAreNotSupported", "multiple_values", "Second value"},
	ValuesMustHaveName:                     {"ValuesMustHaveName", "value_without_name", "Missing value name"},
	ArgumentsMustHaveValueName:             {"ArgumentsMustHaveValueName", "argument_without_value_name", "No value name"},
	OptionsMustHaveName:                    {"OptionsMustHaveName", "option_without_name", "Missing option name"},
	OptionNamesCannotStartWithDigit:        {"OptionNamesCannotStartWithDigit", "option_name_starts_with_digit", "Option name starts with digit"},
	InvalidCharacterInOptionName:           {"InvalidCharacterInOptionName", "invalid_option_name_character", "Invalid character in option name"},
	LongOptionMustHaveMoreThanOneCharacter: {"LongOptionMustHaveMoreThanOneCharacter", "long_option_too_short", "Long option name too short"},
	ShortOptionMustOnlyBeOneCharacter:      {"ShortOptionMustOnlyBeOneCharacter", "short_option_too_long", "Short option name too long"},
	MultipleOptionValuesAreNotSupported:    {"MultipleOptionValuesAreNotSupported", "multiple_option_values", "Second option value"},
	InvalidCharacterInValueName:            {"InvalidCharacterInValueName", "invalid_value_name_character", "Invalid character in value name"},
	MissingLongAndShortName:                {"MissingLongAndShortName", "missing_option_name", "No long or short name"},
}

// Kinds returns every error kind in declaration order.
func Kinds() []ErrorKind {
	kinds := make([]ErrorKind, 0, len(kindInfos)-1)
	for k := UnterminatedValueName; k <= MissingLongAndShortName; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k ErrorKind) valid() bool {
	return k >= UnterminatedValueName && k <= MissingLongAndShortName
}

func (k ErrorKind) String() string {
	if k.valid() {
		return kindInfos[k].name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Code returns a stable snake_case identifier, used for metric labels,
// persisted findings and diagnostic categories.
func (k ErrorKind) Code() string {
	if k.valid() {
		return kindInfos[k].code
	}
	return "unknown"
}

// Label returns the short caption printed under the caret by Pretty.
func (k ErrorKind) Label() string {
	if k.valid() {
		return kindInfos[k].label
	}
	return ""
}

// Lexical reports whether the kind is raised by the tokenizer.
func (k ErrorKind) Lexical() bool {
	return k == UnterminatedValueName
}

// Error is a template rule violation. Both the configuration path and the
// static-analysis path surface the same Message and position.
type Error struct {
	Kind     ErrorKind `json:"kind"`
	Template string    `json:"template"`

	// Token is the offending token; nil when the whole template is at fault.
	Token *Token `json:"token,omitempty"`

	// Character is the offending rune for the invalid character kinds.
	Character rune `json:"character,omitempty"`

	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error of the same kind, so the Err* sentinels work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Position returns the byte offset of the fault within the template.
func (e *Error) Position() int {
	if e.Token == nil {
		return 0
	}
	return e.Token.Position
}

// Span returns the byte range [start, end) of the fault within the template.
func (e *Error) Span() (start, end int) {
	if e.Token == nil {
		return 0, len(e.Template)
	}
	return e.Token.Position, e.Token.End()
}

// Pretty renders the message followed by the template and a caret underline
// beneath the offending span.
func (e *Error) Pretty() string {
	start, end := e.Span()
	width := utf8.RuneCountInString(e.Template[start:end])
	if width == 0 {
		width = 1
	}
	indent := utf8.RuneCountInString(e.Template[:start])

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n\n", e.Message)
	fmt.Fprintf(&b, "       %s\n", e.Template)
	fmt.Fprintf(&b, "       %s%s %s\n", strings.Repeat(" ", indent), strings.Repeat("^", width), e.Kind.Label())
	return b.String()
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// Sentinels for errors.Is.
var (
	ErrUnterminatedValueName                  = &Error{Kind: UnterminatedValueName}
	ErrArgumentCannotContainOptions           = &Error{Kind: ArgumentCannotContainOptions}
	ErrMultipleValuesAreNotSupported          = &Error{Kind: MultipleValuesAreNotSupported}
	ErrValuesMustHaveName                     = &Error{Kind: ValuesMustHaveName}
	ErrArgumentsMustHaveValueName             = &Error{Kind: ArgumentsMustHaveValueName}
	ErrOptionsMustHaveName                    = &Error{Kind: OptionsMustHaveName}
	ErrOptionNamesCannotStartWithDigit        = &Error{Kind: OptionNamesCannotStartWithDigit}
	ErrInvalidCharacterInOptionName           = &Error{Kind: InvalidCharacterInOptionName}
	ErrLongOptionMustHaveMoreThanOneCharacter = &Error{Kind: LongOptionMustHaveMoreThanOneCharacter}
	ErrShortOptionMustOnlyBeOneCharacter      = &Error{Kind: ShortOptionMustOnlyBeOneCharacter}
	ErrMultipleOptionValuesAreNotSupported    = &Error{Kind: MultipleOptionValuesAreNotSupported}
	ErrInvalidCharacterInValueName            = &Error{Kind: InvalidCharacterInValueName}
	ErrMissingLongAndShortName                = &Error{Kind: MissingLongAndShortName}
)

func newError(kind ErrorKind, template string, tok *Token, message string) *Error {
	return &Error{
		Kind:     kind,
		Template: template,
		Token:    tok,
		Message:  message,
	}
}

func newUnterminatedValueName(template string, tok Token) *Error {
	return newError(UnterminatedValueName, template, &tok,
		fmt.Sprintf("Encountered unterminated value name '%s'.", tok.Representation))
}

func newArgumentCannotContainOptions(template string, tok Token) *Error {
	return newError(ArgumentCannotContainOptions, template, &tok, "Arguments can not contain options.")
}

func newMultipleValuesAreNotSupported(template string, tok Token) *Error {
	return newError(MultipleValuesAreNotSupported, template, &tok, "Multiple values are not supported.")
}

func newValuesMustHaveName(template string, tok Token) *Error {
	return newError(ValuesMustHaveName, template, &tok, "Values without name are not allowed.")
}

func newArgumentsMustHaveValueName(template string) *Error {
	return newError(ArgumentsMustHaveValueName, template, nil, "Arguments must have a value name.")
}

func newOptionsMustHaveName(template string, tok Token) *Error {
	return newError(OptionsMustHaveName, template, &tok, "Options without name are not allowed.")
}

func newOptionNamesCannotStartWithDigit(template string, tok Token) *Error {
	return newError(OptionNamesCannotStartWithDigit, template, &tok, "Option names cannot start with a digit.")
}

func newInvalidCharacterInOptionName(template string, tok Token, c rune) *Error {
	e := newError(InvalidCharacterInOptionName, template, &tok,
		fmt.Sprintf("Encountered invalid character '%c' in option name.", c))
	e.Character = c
	return e
}

func newLongOptionMustHaveMoreThanOneCharacter(template string, tok Token) *Error {
	return newError(LongOptionMustHaveMoreThanOneCharacter, template, &tok,
		"Long option names must consist of more than one character.")
}

func newShortOptionMustOnlyBeOneCharacter(template string, tok Token) *Error {
	return newError(ShortOptionMustOnlyBeOneCharacter, template, &tok,
		"Short option names can not be longer than one character.")
}

func newMultipleOptionValuesAreNotSupported(template string, tok Token) *Error {
	return newError(MultipleOptionValuesAreNotSupported, template, &tok, "Multiple option values are not supported.")
}

func newInvalidCharacterInValueName(template string, tok Token, c rune) *Error {
	e := newError(InvalidCharacterInValueName, template, &tok,
		fmt.Sprintf("Encountered invalid character '%c' in value name.", c))
	e.Character = c
	return e
}

func newMissingLongAndShortName(template string) *Error {
	return newError(MissingLongAndShortName, template, nil, "No long or short name for option has been specified.")
}
