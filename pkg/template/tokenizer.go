package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scanner produces the tokens of a single template in one left-to-right pass.
// A Scanner holds only its own cursor; create a new one to rescan.
type Scanner struct {
	template string
	pos      int
	err      error
}

// NewScanner returns a scanner positioned at the start of template.
func NewScanner(template string) *Scanner {
	return &Scanner{template: template}
}

// Next returns the next token. ok is false once the template is exhausted or
// after a lexical error; the error is sticky.
func (s *Scanner) Next() (tok Token, ok bool, err error) {
	if s.err != nil {
		return Token{}, false, s.err
	}

	s.skipSeparators()
	if s.pos >= len(s.template) {
		return Token{}, false, nil
	}

	switch s.template[s.pos] {
	case '-':
		tok = s.readName()
	case '<':
		tok, err = s.readValue(RequiredValue, '>')
	case '[':
		tok, err = s.readValue(OptionalValue, ']')
	default:
		tok = s.readLiteral()
	}

	if err != nil {
		s.err = err
		return Token{}, false, err
	}
	return tok, true, nil
}

// Tokenize scans the whole template. Lexical errors are reported before any
// token is handed out, so grammar rules never see a malformed stream.
func Tokenize(template string) ([]Token, error) {
	var tokens []Token
	s := NewScanner(template)
	for {
		tok, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

func (s *Scanner) skipSeparators() {
	for s.pos < len(s.template) {
		r, size := utf8.DecodeRuneInString(s.template[s.pos:])
		if r != '|' && !unicode.IsSpace(r) {
			return
		}
		s.pos += size
	}
}

// readName reads -N or --NAME. The name runs to the next separator.
func (s *Scanner) readName() Token {
	start := s.pos
	kind := ShortName

	s.pos++
	if s.pos < len(s.template) && s.template[s.pos] == '-' {
		kind = LongName
		s.pos++
	}

	nameStart := s.pos
	s.advanceUntil(func(r rune) bool {
		return r == '|' || unicode.IsSpace(r)
	})

	return Token{
		Kind:           kind,
		Value:          s.template[nameStart:s.pos],
		Position:       start,
		Representation: s.template[start:s.pos],
	}
}

// readValue reads a delimited placeholder. Delimiters do not nest.
func (s *Scanner) readValue(kind TokenKind, closing byte) (Token, error) {
	start := s.pos
	s.pos++

	end := strings.IndexByte(s.template[s.pos:], closing)
	if end < 0 {
		tok := Token{
			Kind:           kind,
			Value:          s.template[s.pos:],
			Position:       start,
			Representation: s.template[start:],
		}
		s.pos = len(s.template)
		return Token{}, newUnterminatedValueName(s.template, tok)
	}

	value := s.template[s.pos : s.pos+end]
	s.pos += end + 1

	return Token{
		Kind:           kind,
		Value:          value,
		Position:       start,
		Representation: s.template[start:s.pos],
	}, nil
}

// readLiteral reads bare text up to a separator or an opening delimiter.
func (s *Scanner) readLiteral() Token {
	start := s.pos
	s.advanceUntil(func(r rune) bool {
		return r == '|' || r == '<' || r == '[' || unicode.IsSpace(r)
	})

	return Token{
		Kind:           Literal,
		Value:          s.template[start:s.pos],
		Position:       start,
		Representation: s.template[start:s.pos],
	}
}

func (s *Scanner) advanceUntil(stop func(rune) bool) {
	for s.pos < len(s.template) {
		r, size := utf8.DecodeRuneInString(s.template[s.pos:])
		if stop(r) {
			return
		}
		s.pos += size
	}
}
