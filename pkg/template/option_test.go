package template

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseOptionTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     *OptionResult
	}{
		{
			name:     "short and long flag",
			template: "-d|--dd",
			want: &OptionResult{
				LongNames:  []string{"dd"},
				ShortNames: []string{"d"},
			},
		},
		{
			name:     "long with required value",
			template: "--dd <NUM>",
			want: &OptionResult{
				LongNames:  []string{"dd"},
				ShortNames: []string{},
				Value:      "NUM",
				HasValue:   true,
			},
		},
		{
			name:     "optional value",
			template: "-l|--level [LEVEL]",
			want: &OptionResult{
				LongNames:       []string{"level"},
				ShortNames:      []string{"l"},
				Value:           "LEVEL",
				HasValue:        true,
				ValueIsOptional: true,
			},
		},
		{
			name:     "value name is upper-cased",
			template: "--count <num>",
			want: &OptionResult{
				LongNames:  []string{"count"},
				ShortNames: []string{},
				Value:      "NUM",
				HasValue:   true,
			},
		},
		{
			name:     "names keep order of appearance",
			template: "-a --bee -c",
			want: &OptionResult{
				LongNames:  []string{"bee"},
				ShortNames: []string{"a", "c"},
			},
		},
		{
			name:     "dash and underscore in names",
			template: "--dry-run|--dry_run",
			want: &OptionResult{
				LongNames:  []string{"dry-run", "dry_run"},
				ShortNames: []string{},
			},
		},
		{
			name:     "equals sign in value name",
			template: "--set <key=value>",
			want: &OptionResult{
				LongNames:  []string{"set"},
				ShortNames: []string{},
				Value:      "KEY=VALUE",
				HasValue:   true,
			},
		},
		{
			name:     "empty value name",
			template: "--foo <>",
			want: &OptionResult{
				LongNames:  []string{"foo"},
				ShortNames: []string{},
				Value:      "",
				HasValue:   true,
			},
		},
		{
			name:     "unicode letters",
			template: "-é|--über",
			want: &OptionResult{
				LongNames:  []string{"über"},
				ShortNames: []string{"é"},
			},
		},
		{
			name:     "digit after first character",
			template: "-x|--x2",
			want: &OptionResult{
				LongNames:  []string{"x2"},
				ShortNames: []string{"x"},
			},
		},
		{
			name:     "bare text is ignored",
			template: "--name <NAME> ignored",
			want: &OptionResult{
				LongNames:  []string{"name"},
				ShortNames: []string{},
				Value:      "NAME",
				HasValue:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptionTemplate(tt.template)
			if err != nil {
				t.Fatalf("ParseOptionTemplate(%q) unexpected error: %v", tt.template, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseOptionTemplate(%q) mismatch (-want +got):\n%s", tt.template, diff)
			}
		})
	}
}

func TestParseOptionTemplate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		kind      ErrorKind
		position  int
		noToken   bool
		character rune
		message   string
	}{
		{
			name:     "value without names",
			template: "<VALUE>",
			kind:     MissingLongAndShortName,
			noToken:  true,
			message:  "No long or short name for option has been specified.",
		},
		{
			name:     "names without dashes",
			template: "d|dd",
			kind:     MissingLongAndShortName,
			noToken:  true,
			message:  "No long or short name for option has been specified.",
		},
		{
			name:     "lone dash",
			template: "-",
			kind:     OptionsMustHaveName,
			position: 0,
			message:  "Options without name are not allowed.",
		},
		{
			name:     "lone double dash",
			template: "-f|--",
			kind:     OptionsMustHaveName,
			position: 3,
			message:  "Options without name are not allowed.",
		},
		{
			name:     "long name starting with digit",
			template: "--1foo",
			kind:     OptionNamesCannotStartWithDigit,
			position: 0,
			message:  "Option names cannot start with a digit.",
		},
		{
			name:     "digit check precedes length check",
			template: "-1",
			kind:     OptionNamesCannotStartWithDigit,
			position: 0,
			message:  "Option names cannot start with a digit.",
		},
		{
			name:      "invalid character in name",
			template:  "--foo$",
			kind:      InvalidCharacterInOptionName,
			position:  0,
			character: '$',
			message:   "Encountered invalid character '$' in option name.",
		},
		{
			name:      "placeholder glued to name",
			template:  "--foo<NUM>",
			kind:      InvalidCharacterInOptionName,
			position:  0,
			character: '<',
			message:   "Encountered invalid character '<' in option name.",
		},
		{
			name:     "one character long name",
			template: "-f|--f",
			kind:     LongOptionMustHaveMoreThanOneCharacter,
			position: 3,
			message:  "Long option names must consist of more than one character.",
		},
		{
			name:     "multi character short name",
			template: "-foo|--bar",
			kind:     ShortOptionMustOnlyBeOneCharacter,
			position: 0,
			message:  "Short option names can not be longer than one character.",
		},
		{
			name:     "two values",
			template: "--foo <A> <B>",
			kind:     MultipleOptionValuesAreNotSupported,
			position: 10,
			message:  "Multiple option values are not supported.",
		},
		{
			name:     "empty value still counts",
			template: "--foo <> [B]",
			kind:     MultipleOptionValuesAreNotSupported,
			position: 9,
			message:  "Multiple option values are not supported.",
		},
		{
			name:      "invalid character in value",
			template:  "--foo <A.B>",
			kind:      InvalidCharacterInValueName,
			position:  6,
			character: '.',
			message:   "Encountered invalid character '.' in value name.",
		},
		{
			name:      "space in value",
			template:  "--foo < >",
			kind:      InvalidCharacterInValueName,
			position:  6,
			character: ' ',
			message:   "Encountered invalid character ' ' in value name.",
		},
		{
			name:     "unterminated",
			template: "--foo [BAR",
			kind:     UnterminatedValueName,
			position: 6,
			message:  "Encountered unterminated value name '[BAR'.",
		},
		{
			name:     "lexical error wins over grammar",
			template: "--f <X",
			kind:     UnterminatedValueName,
			position: 4,
			message:  "Encountered unterminated value name '<X'.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptionTemplate(tt.template)
			if err == nil {
				t.Fatalf("ParseOptionTemplate(%q) = %+v, want error", tt.template, got)
			}
			if got != nil {
				t.Errorf("expected nil result on error, got %+v", got)
			}

			var te *Error
			if !errors.As(err, &te) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if te.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, te.Kind)
			}
			if te.Error() != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, te.Error())
			}
			if te.Character != tt.character {
				t.Errorf("expected character %q, got %q", tt.character, te.Character)
			}
			if tt.noToken {
				if te.Token != nil {
					t.Errorf("expected no offending token, got %v", te.Token)
				}
				return
			}
			if te.Token == nil {
				t.Fatalf("expected an offending token")
			}
			if te.Position() != tt.position {
				t.Errorf("expected position %d, got %d", tt.position, te.Position())
			}
		})
	}
}

// Templates holding at least one valid option name never parse as arguments
// but always parse as options.
func TestOptionNamesProperty(t *testing.T) {
	names := [][]string{
		{"-a"},
		{"--bee"},
		{"-a", "--bee"},
		{"--dry-run", "-n", "--noop"},
		{"--x_y"},
	}
	values := []string{"", "<V>", "[V]", "<key=val>"}

	for _, ns := range names {
		for _, v := range values {
			tmpl := ""
			for i, n := range ns {
				if i > 0 {
					tmpl += "|"
				}
				tmpl += n
			}
			if v != "" {
				tmpl += " " + v
			}

			if _, err := ParseArgumentTemplate(tmpl); !errors.Is(err, ErrArgumentCannotContainOptions) {
				t.Errorf("ParseArgumentTemplate(%q) error = %v, want ArgumentCannotContainOptions", tmpl, err)
			}
			if _, err := ParseOptionTemplate(tmpl); err != nil {
				t.Errorf("ParseOptionTemplate(%q) unexpected error: %v", tmpl, err)
			}
		}
	}
}

func TestParseOptionTemplate_Deterministic(t *testing.T) {
	for _, tmpl := range []string{"-a|--bee <C>", "--foo [bar]", "-foo", "<V>", "--x <"} {
		first, firstErr := ParseOptionTemplate(tmpl)
		second, secondErr := ParseOptionTemplate(tmpl)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("%q: results differ (-first +second):\n%s", tmpl, diff)
		}
		if diff := cmp.Diff(firstErr, secondErr); diff != "" {
			t.Errorf("%q: errors differ (-first +second):\n%s", tmpl, diff)
		}
	}
}

func TestOptionResult_IsFlag(t *testing.T) {
	if !MustParseOptionTemplate("-v|--verbose").IsFlag() {
		t.Errorf("expected --verbose to be a flag")
	}
	if MustParseOptionTemplate("--out <FILE>").IsFlag() {
		t.Errorf("expected --out to take a value")
	}
}

func TestMustParseOptionTemplate_Panics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic for invalid template")
		}
		msg, ok := r.(string)
		if !ok {
			t.Fatalf("expected string panic value, got %T", r)
		}
		want := `template: ParseOptionTemplate("<VALUE>"): No long or short name for option has been specified.`
		if msg != want {
			t.Errorf("expected panic %q, got %q", want, msg)
		}
	}()
	MustParseOptionTemplate("<VALUE>")
}
