package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/openfroyo/clitmpl/pkg/template"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	var names []string
	for _, p := range eng.ListPolicies() {
		names = append(names, p.Name)
	}
	want := []string{
		PolicyLongOptionKebabCase,
		PolicyNoDuplicateShortNames,
		PolicyValueNameUpperCase,
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("built-in policies mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_BuiltinPolicies(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		name  string
		input *Input
		want  []string // policy names of the violations
	}{
		{
			name:  "kebab-case option",
			input: OptionInput("-o|--output-file <FILE>", template.MustParseOptionTemplate("-o|--output-file <FILE>"), []string{"o", "v"}),
		},
		{
			name:  "camel case option",
			input: OptionInput("--outputFile <FILE>", template.MustParseOptionTemplate("--outputFile <FILE>"), nil),
			want:  []string{PolicyLongOptionKebabCase},
		},
		{
			name:  "snake case option",
			input: OptionInput("--dry_run", template.MustParseOptionTemplate("--dry_run"), nil),
			want:  []string{PolicyLongOptionKebabCase},
		},
		{
			name:  "duplicate short name",
			input: OptionInput("-v|--verbose", template.MustParseOptionTemplate("-v|--verbose"), []string{"v", "o", "v"}),
			want:  []string{PolicyNoDuplicateShortNames},
		},
		{
			name:  "upper case argument",
			input: ArgumentInput("<SOURCE>", template.MustParseArgumentTemplate("<SOURCE>")),
		},
		{
			name:  "lower case argument",
			input: ArgumentInput("[target]", template.MustParseArgumentTemplate("[target]")),
			want:  []string{PolicyValueNameUpperCase},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eng.Evaluate(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if len(result.Warnings) > 0 {
				t.Fatalf("unexpected warnings: %v", result.Warnings)
			}

			var got []string
			for _, v := range result.Violations {
				got = append(got, v.Policy)
				if v.Template != tt.input.Template {
					t.Errorf("violation template = %q, want %q", v.Template, tt.input.Template)
				}
				if v.Message == "" {
					t.Errorf("violation of %s has no message", v.Policy)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("violations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluate_Severity(t *testing.T) {
	eng := newTestEngine(t)

	input := OptionInput("-v|--verbose", template.MustParseOptionTemplate("-v|--verbose"), []string{"v", "v"})
	input.File = "cmd/root.go"
	input.Line = 14

	result, err := eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	want := []Violation{{
		Policy:   PolicyNoDuplicateShortNames,
		Message:  "short option name '-v' is used more than once in the command",
		Severity: SeverityError,
		Template: "-v|--verbose",
		File:     "cmd/root.go",
		Line:     14,
	}}
	if diff := cmp.Diff(want, result.Violations); diff != "" {
		t.Errorf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)
	input := OptionInput("--dryRun", template.MustParseOptionTemplate("--dryRun"), nil)

	if err := eng.DisablePolicy(PolicyLongOptionKebabCase); err != nil {
		t.Fatalf("DisablePolicy() error = %v", err)
	}
	result, err := eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Violations) != 0 {
		t.Errorf("disabled policy still reported: %+v", result.Violations)
	}

	if err := eng.EnablePolicy(PolicyLongOptionKebabCase); err != nil {
		t.Fatalf("EnablePolicy() error = %v", err)
	}
	result, err = eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Violations) != 1 {
		t.Errorf("expected 1 violation after enabling, got %d", len(result.Violations))
	}

	if err := eng.DisablePolicy("missing"); err == nil {
		t.Error("DisablePolicy(missing) succeeded")
	}
}

const noVerbosePolicy = `package custom.noverbose

# Forbids the --verbose option in favour of --log-level.
deny contains violation if {
	some name in input.option.long_names
	name == "verbose"
	violation := {"message": "use --log-level instead of --verbose", "severity": "info"}
}
`

func TestLoadPolicies(t *testing.T) {
	eng := newTestEngine(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "no-verbose.rego"), []byte(noVerbosePolicy), 0o644); err != nil {
		t.Fatalf("Failed to write policy: %v", err)
	}

	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}

	p, err := eng.GetPolicy("no-verbose")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if p.Description != "Forbids the --verbose option in favour of --log-level." {
		t.Errorf("Description = %q", p.Description)
	}

	result, err := eng.Evaluate(context.Background(), OptionInput("--verbose", template.MustParseOptionTemplate("--verbose"), nil))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Violations) != 1 || result.Violations[0].Severity != SeverityInfo {
		t.Fatalf("unexpected violations: %+v", result.Violations)
	}

	if err := eng.ReloadPolicies(context.Background()); err != nil {
		t.Fatalf("ReloadPolicies() error = %v", err)
	}
	if _, err := eng.GetPolicy("no-verbose"); err == nil {
		t.Error("loaded policy survived ReloadPolicies")
	}
}

func TestSetPolicies_Override(t *testing.T) {
	eng := newTestEngine(t)

	lenient := Policy{
		Name:     PolicyLongOptionKebabCase,
		Rego:     "package lenient\n\ndeny contains msg if {\n\tfalse\n\tmsg := \"never\"\n}\n",
		Severity: SeverityWarning,
		Enabled:  true,
	}
	if err := eng.SetPolicies(context.Background(), []Policy{lenient}); err != nil {
		t.Fatalf("SetPolicies() error = %v", err)
	}
	input := OptionInput("--dryRun", template.MustParseOptionTemplate("--dryRun"), nil)
	result, err := eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Violations) != 0 {
		t.Errorf("override did not replace the built-in: %+v", result.Violations)
	}

	// dropping the override brings the built-in back
	if err := eng.SetPolicies(context.Background(), nil); err != nil {
		t.Fatalf("SetPolicies(nil) error = %v", err)
	}
	result, err = eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Violations) != 1 {
		t.Errorf("expected built-in to be restored, got %+v", result.Violations)
	}

	bad := Policy{Name: "broken", Rego: "package broken\n\ndeny[", Enabled: true}
	if err := eng.SetPolicies(context.Background(), []Policy{bad}); err == nil {
		t.Error("SetPolicies() accepted an invalid policy")
	}
}
