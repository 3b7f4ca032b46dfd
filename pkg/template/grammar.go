package template

import "fmt"

// Grammar names one of the two template grammars.
type Grammar string

const (
	ArgumentGrammar Grammar = "argument"
	OptionGrammar   Grammar = "option"
)

// Parse parses template with g and returns an *ArgumentResult or an
// *OptionResult.
func (g Grammar) Parse(template string) (any, error) {
	switch g {
	case ArgumentGrammar:
		res, err := ParseArgumentTemplate(template)
		if err != nil {
			return nil, err
		}
		return res, nil
	case OptionGrammar:
		res, err := ParseOptionTemplate(template)
		if err != nil {
			return nil, err
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unknown template grammar %q", string(g))
	}
}
