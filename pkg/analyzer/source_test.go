package analyzer

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/openfroyo/clitmpl/pkg/cli"
	"github.com/openfroyo/clitmpl/pkg/template"
)

const source = "package p\n" +
	"\n" +
	"type S struct {\n" +
	"\tA string `json:\"a\" option:\"-f|--foo <A.B>\"`\n" +
	"\tB string \"option:\\\"-foo\\\"\"\n" +
	"\tC string `argument:\"zz,<X>\"`\n" +
	"\tD string `argument:\"0,<OK>\" option:\"--ok\"`\n" +
	"\tE string `argument:\"1, [A] [B]\"`\n" +
	"}\n"

func TestCheckFile(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", source, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var problems []Problem
	CheckFile(file, func(p Problem) { problems = append(problems, p) })

	if len(problems) != 4 {
		t.Fatalf("expected 4 problems, got %d: %+v", len(problems), problems)
	}

	tests := []struct {
		category string
		start    int
		end      int
		kind     template.ErrorKind
		err      error
	}{
		{
			category: CategoryOption,
			start:    strings.Index(source, "<A.B>"),
			end:      strings.Index(source, "<A.B>") + len("<A.B>"),
			kind:     template.InvalidCharacterInValueName,
		},
		{
			category: CategoryOption,
			start:    strings.Index(source, `"option:\"-foo`),
			end:      strings.Index(source, `\""`) + 3,
			kind:     template.ShortOptionMustOnlyBeOneCharacter,
		},
		{
			category: CategoryArgumentTag,
			start:    strings.Index(source, "`argument:\"zz"),
			end:      strings.Index(source, "<X>\"`") + 5,
			err:      cli.ErrInvalidArgumentTag,
		},
		{
			category: CategoryArgument,
			start:    strings.Index(source, "[B]"),
			end:      strings.Index(source, "[B]") + 3,
			kind:     template.MultipleValuesAreNotSupported,
		},
	}

	for i, tt := range tests {
		p := problems[i]
		if p.Category != tt.category {
			t.Errorf("problem %d: expected category %s, got %s", i, tt.category, p.Category)
		}
		if got := fset.Position(p.Pos).Offset; got != tt.start {
			t.Errorf("problem %d: expected start offset %d, got %d", i, tt.start, got)
		}
		if got := fset.Position(p.End).Offset; got != tt.end {
			t.Errorf("problem %d: expected end offset %d, got %d", i, tt.end, got)
		}
		if tt.err != nil {
			if !errors.Is(p.Err, tt.err) {
				t.Errorf("problem %d: expected %v, got %v", i, tt.err, p.Err)
			}
			continue
		}
		te := p.TemplateError()
		if te == nil || te.Kind != tt.kind {
			t.Errorf("problem %d: expected kind %s, got %v", i, tt.kind, p.Err)
		}
	}
}

func TestStringLiteral(t *testing.T) {
	raw := StringLiteral(parseExpr(t, "`--x <A> <B>`"), template.OptionGrammar, "--x <A> <B>")
	if !raw.Exact {
		t.Errorf("expected raw string literal to be located exactly")
	}

	escaped := StringLiteral(parseExpr(t, `"--y\t"`), template.OptionGrammar, "--y\t")
	if escaped.Exact {
		t.Errorf("expected escaped literal to fall back to the literal span")
	}

	_, p := raw.Check()
	if p == nil {
		t.Fatalf("expected a problem for two option values")
	}
	if p.Pos != raw.Pos+token.Pos(len("--x <A> ")) || p.End != p.Pos+3 {
		t.Errorf("unexpected span [%d,%d) relative to %d", p.Pos, p.End, raw.Pos)
	}
}

func parseExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	expr, err := parser.ParseExpr(src)
	if err != nil {
		t.Fatalf("parse %s: %v", src, err)
	}
	return expr
}

func TestFileTemplates(t *testing.T) {
	src := "package p\n" +
		"\n" +
		"type Deploy struct {\n" +
		"\tEnv   string `argument:\"0,<ENV>\"`\n" +
		"\tForce bool   `option:\"-f|--force\"`\n" +
		"\tBad   string `argument:\"x,<X>\"`\n" +
		"\tNested struct {\n" +
		"\t\tQuiet bool `option:\"-q|--quiet\"`\n" +
		"\t} `json:\"nested\"`\n" +
		"}\n" +
		"\n" +
		"type Plain struct{ A int }\n"

	file, err := parser.ParseFile(token.NewFileSet(), "p.go", src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	groups := FileTemplates(file)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(groups), groups)
	}

	var outer []string
	for _, occ := range groups[0].Occurrences {
		outer = append(outer, occ.Template)
	}
	if strings.Join(outer, " ") != "<ENV> -f|--force" {
		t.Errorf("outer templates = %q", outer)
	}
	if len(groups[0].Problems) != 1 || groups[0].Problems[0].Category != CategoryArgumentTag {
		t.Errorf("outer problems = %+v", groups[0].Problems)
	}
	if len(groups[1].Occurrences) != 1 || groups[1].Occurrences[0].Template != "-q|--quiet" {
		t.Errorf("nested group = %+v", groups[1])
	}
}
