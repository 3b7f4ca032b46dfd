package template

import "fmt"

// TokenKind classifies the lexical shape of a template token.
type TokenKind int

const (
	// Literal is bare text outside of any delimiter. Both grammars ignore it.
	Literal TokenKind = iota
	// ShortName is a single-dash flag name such as -f.
	ShortName
	// LongName is a double-dash flag name such as --force.
	LongName
	// RequiredValue is an angle-bracketed placeholder such as <NAME>.
	RequiredValue
	// OptionalValue is a square-bracketed placeholder such as [NAME].
	OptionalValue
)

var tokenKindNames = [...]string{
	Literal:       "Literal",
	ShortName:     "ShortName",
	LongName:      "LongName",
	RequiredValue: "RequiredValue",
	OptionalValue: "OptionalValue",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) && int(k) >= 0 {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// IsName reports whether the kind is a flag name.
func (k TokenKind) IsName() bool {
	return k == ShortName || k == LongName
}

// IsValue reports whether the kind is a value placeholder.
func (k TokenKind) IsValue() bool {
	return k == RequiredValue || k == OptionalValue
}

// Token is one classified unit of a template. Tokens are never mutated after
// the scanner produces them.
type Token struct {
	Kind TokenKind `json:"kind"`

	// Value is the name after the dashes or the text inside the delimiters.
	Value string `json:"value"`

	// Position is the 0-based byte offset of the token start in the template.
	Position int `json:"position"`

	// Representation is the raw source text of the token.
	Representation string `json:"representation"`
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Position + len(t.Representation)
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Value, t.Position)
}
