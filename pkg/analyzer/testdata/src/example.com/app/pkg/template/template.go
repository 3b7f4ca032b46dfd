package template

type ArgumentResult struct {
	Value    string
	Required bool
}

type OptionResult struct {
	LongNames  []string
	ShortNames []string
}

func ParseArgumentTemplate(template string) (*ArgumentResult, error) { return nil, nil }

func MustParseArgumentTemplate(template string) *ArgumentResult { return nil }

func ParseOptionTemplate(template string) (*OptionResult, error) { return nil, nil }

func MustParseOptionTemplate(template string) *OptionResult { return nil }
