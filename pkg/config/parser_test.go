package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/openfroyo/clitmpl/pkg/cli"
	"github.com/openfroyo/clitmpl/pkg/template"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const deployYAML = `name: deployctl
version: "1.0"
commands:
  - name: deploy
    short: Deploy a release
    arguments:
      - template: "<ENV>"
      - template: "[TARGET]"
    options:
      - template: "-f|--force"
      - template: "-c|--count <NUM>"
        type: int
        default: "1"
`

func TestManifestParser_ParseYAML(t *testing.T) {
	parser := NewManifestParser()
	path := writeFile(t, t.TempDir(), "deploy.yaml", deployYAML)

	pm, err := parser.Parse(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if pm.HasErrors() {
		t.Fatalf("unexpected errors: %v", pm.Err())
	}

	if pm.Manifest.Name != "deployctl" || pm.Manifest.Version != "1.0" {
		t.Errorf("manifest = %s %s", pm.Manifest.Name, pm.Manifest.Version)
	}

	want := []cli.CommandSpec{{
		Name:  "deploy",
		Short: "Deploy a release",
		Arguments: []cli.ArgumentSpec{
			{Position: 0, Template: "<ENV>"},
			{Position: 1, Template: "[TARGET]"},
		},
		Options: []cli.OptionSpec{
			{Template: "-f|--force"},
			{Template: "-c|--count <NUM>", Type: cli.TypeInt, Default: "1"},
		},
	}}
	if diff := cmp.Diff(want, pm.Specs()); diff != "" {
		t.Errorf("Specs() mismatch (-want +got):\n%s", diff)
	}

	if len(pm.Templates) != 4 {
		t.Fatalf("expected 4 parsed templates, got %d", len(pm.Templates))
	}
	env := pm.Templates[0]
	if env.Line != 7 || env.Column != 20 || env.Command != "deploy" {
		t.Errorf("template <ENV> located at %d:%d in %q", env.Line, env.Column, env.Command)
	}
	if diff := cmp.Diff([]string{"f", "c"}, pm.ShortNames("deploy")); diff != "" {
		t.Errorf("ShortNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestManifestParser_TemplateErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    ValidationError
	}{
		{
			name: "yaml unterminated value name",
			file: "bad.yaml",
			content: `name: deployctl
commands:
  - name: deploy
    arguments:
      - template: "<FILE"
`,
			want: ValidationError{
				Line:     5,
				Column:   20,
				Path:     "commands[0].arguments[0].template",
				Code:     "unterminated_value_name",
				Message:  "Encountered unterminated value name '<FILE'.",
				Severity: "error",
			},
		},
		{
			name: "yaml plain scalar",
			file: "plain.yaml",
			content: `commands:
  - name: deploy
    options:
      - template: <VALUE>
`,
			want: ValidationError{
				Line:     4,
				Column:   19,
				Path:     "commands[0].options[0].template",
				Code:     "missing_option_name",
				Message:  "No long or short name for option has been specified.",
				Severity: "error",
			},
		},
		{
			name: "cue multiple option values",
			file: "bad.cue",
			content: `name: "deployctl"
commands: [{
	name: "deploy"
	options: [{template: "-x|--foo <A> <B>"}]
}]
`,
			want: ValidationError{
				Line:     4,
				Column:   37,
				Path:     "commands[0].options[0].template",
				Code:     "multiple_option_values",
				Message:  "Multiple option values are not supported.",
				Severity: "error",
			},
		},
	}

	parser := NewManifestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			tt.want.File = path

			pm, err := parser.Parse(context.Background(), []string{path})
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff([]ValidationError{tt.want}, pm.Errors); diff != "" {
				t.Errorf("Errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManifestParser_RuleErrors(t *testing.T) {
	content := `commands:
  - name: build
    options:
      - template: -v|--verbose
      - template: -v|--version
`
	pm, err := NewManifestParser().ParseInline(context.Background(), content, FormatYAML)
	if err != nil {
		t.Fatalf("ParseInline() error = %v", err)
	}

	want := []ValidationError{{
		File:     "inline",
		Line:     5,
		Column:   19,
		Path:     "commands[0].options[1].template",
		Code:     CodeInvalidCommand,
		Message:  "-v|--version: option name already in use: v",
		Severity: "error",
	}}
	if diff := cmp.Diff(want, pm.Errors); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
}

func TestManifestParser_SchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		format   string
		wantCode string
	}{
		{
			name:     "yaml syntax",
			content:  "commands: [\n",
			format:   FormatYAML,
			wantCode: CodeSyntax,
		},
		{
			name:     "cue syntax",
			content:  "commands: [{name: }\n",
			format:   FormatCUE,
			wantCode: CodeSyntax,
		},
		{
			name: "unknown field",
			content: `commands:
  - name: deploy
    colour: red
`,
			format:   FormatYAML,
			wantCode: CodeSchema,
		},
		{
			name: "bad value type",
			content: `commands: [{
	name: "deploy"
	options: [{template: "--count <N>", type: "number"}]
}]
`,
			format:   FormatCUE,
			wantCode: CodeSchema,
		},
		{
			name:     "command name with template syntax",
			content:  "commands:\n  - name: \"<deploy>\"\n",
			format:   FormatYAML,
			wantCode: CodeSchema,
		},
	}

	parser := NewManifestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := parser.ParseInline(context.Background(), tt.content, tt.format)
			if err != nil {
				t.Fatalf("ParseInline() error = %v", err)
			}
			if !pm.HasErrors() {
				t.Fatal("expected validation errors")
			}
			for _, e := range pm.Errors {
				if e.Code != tt.wantCode {
					t.Errorf("error %v: code = %s, want %s", e, e.Code, tt.wantCode)
				}
			}
			if len(pm.Manifest.Commands) != 0 {
				t.Errorf("commands of an invalid manifest were kept: %v", pm.Manifest.Commands)
			}
		})
	}

	if _, err := parser.ParseInline(context.Background(), "{}", "toml"); err == nil {
		t.Error("ParseInline() accepted an unknown format")
	}
}

func TestManifestParser_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "root.cue", `package manifest

name: "ops"
commands: [{
	name: "deploy"
	arguments: [{template: "<ENV>"}]
}]
`)
	writeFile(t, dir, "status.yaml", `commands:
  - name: status
    options:
      - template: "--watch"
`)
	writeFile(t, dir, "ci.yaml", "on: push\njobs: {}\n")

	pm, err := NewManifestParser().Parse(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if pm.HasErrors() {
		t.Fatalf("unexpected errors: %v", pm.Err())
	}

	var names []string
	for _, c := range pm.Manifest.Commands {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"deploy", "status"}, names); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if pm.Manifest.Name != "ops" {
		t.Errorf("Name = %q, want ops", pm.Manifest.Name)
	}
	if len(pm.SourceFiles) != 2 {
		t.Errorf("SourceFiles = %v", pm.SourceFiles)
	}
}

func TestManifestParser_DuplicateCommands(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "commands:\n  - name: deploy\n")
	b := writeFile(t, dir, "b.yaml", "commands:\n  - name: deploy\n")

	pm, err := NewManifestParser().Parse(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(pm.Errors) != 1 || pm.Errors[0].Code != CodeDuplicateCommand || pm.Errors[0].File != b {
		t.Errorf("unexpected errors: %+v", pm.Errors)
	}
	if len(pm.Manifest.Commands) != 1 {
		t.Errorf("expected the first declaration to be kept, got %d commands", len(pm.Manifest.Commands))
	}
}

func TestManifestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	parser := NewManifestParser()

	if _, err := parser.ParseFile(context.Background(), writeFile(t, dir, "compose.yaml", "services: {}\n")); !errors.Is(err, ErrNotManifest) {
		t.Errorf("ParseFile(compose.yaml) error = %v, want ErrNotManifest", err)
	}
	if _, err := parser.ParseFile(context.Background(), writeFile(t, dir, "notes.txt", "commands")); err == nil {
		t.Error("ParseFile(notes.txt) succeeded")
	}

	pm, err := parser.ParseFile(context.Background(), writeFile(t, dir, "tool.yaml", deployYAML))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if pm.HasErrors() {
		t.Errorf("unexpected errors: %v", pm.Err())
	}
}

func TestManifestParser_Subcommands(t *testing.T) {
	content := `commands: [{
	name: "remote"
	commands: [{
		name: "add"
		arguments: [{template: "<NAME>"}, {template: "<URL>"}]
		options: [{template: "-f|--fetch"}]
	}]
}]
`
	pm, err := NewManifestParser().ParseInline(context.Background(), content, FormatCUE)
	if err != nil {
		t.Fatalf("ParseInline() error = %v", err)
	}
	if pm.HasErrors() {
		t.Fatalf("unexpected errors: %v", pm.Err())
	}

	want := []TemplateRef{
		{Path: "commands[0].commands[0].arguments[0].template", Command: "remote add", Grammar: template.ArgumentGrammar, Template: "<NAME>"},
		{Path: "commands[0].commands[0].arguments[1].template", Command: "remote add", Grammar: template.ArgumentGrammar, Template: "<URL>"},
		{Path: "commands[0].commands[0].options[0].template", Command: "remote add", Grammar: template.OptionGrammar, Template: "-f|--fetch"},
	}
	ignore := cmpopts.IgnoreFields(TemplateRef{}, "File", "Line", "Column", "Option", "Argument")
	if diff := cmp.Diff(want, pm.Templates, ignore); diff != "" {
		t.Errorf("Templates mismatch (-want +got):\n%s", diff)
	}

	root := pm.RootSpec()
	if root.Name != "manifest" || len(root.Subcommands) != 1 || root.Subcommands[0].Subcommands[0].Name != "add" {
		t.Errorf("RootSpec() = %+v", root)
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		err  ValidationError
		want string
	}{
		{
			err:  ValidationError{File: "cli.yaml", Line: 5, Column: 20, Code: "unterminated_value_name", Message: "Encountered unterminated value name '<FILE'."},
			want: "cli.yaml:5:20: unterminated_value_name Encountered unterminated value name '<FILE'.",
		},
		{
			err:  ValidationError{Path: "commands[0].name", Code: CodeSchema, Message: "incomplete value string"},
			want: "commands[0].name: schema incomplete value string",
		},
		{
			err:  ValidationError{File: "dir", Message: "no CUE files found"},
			want: "dir: no CUE files found",
		},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
