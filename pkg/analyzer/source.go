package analyzer

import (
	"errors"
	"go/ast"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/tools/go/analysis"

	"github.com/openfroyo/clitmpl/pkg/cli"
	"github.com/openfroyo/clitmpl/pkg/template"
)

// Diagnostic categories.
const (
	CategoryArgument    = "CT100"
	CategoryArgumentTag = "CT101"
	CategoryOption      = "CT200"
)

// Occurrence is a template found in Go source.
type Occurrence struct {
	Grammar  template.Grammar
	Template string

	// Pos and End delimit the template text when Exact is set, otherwise the
	// whole enclosing literal.
	Pos   token.Pos
	End   token.Pos
	Exact bool
}

// Problem is a malformed template found in Go source.
type Problem struct {
	Pos      token.Pos
	End      token.Pos
	Category string
	Template string

	// Err is a *template.Error, or cli.ErrInvalidArgumentTag for a tag whose
	// position prefix cannot be read.
	Err error
}

// Diagnostic converts p for reporting through an analysis pass.
func (p Problem) Diagnostic() analysis.Diagnostic {
	return analysis.Diagnostic{
		Pos:      p.Pos,
		End:      p.End,
		Category: p.Category,
		Message:  p.Err.Error(),
	}
}

// TemplateError returns the underlying *template.Error, if any.
func (p Problem) TemplateError() *template.Error {
	var te *template.Error
	if errors.As(p.Err, &te) {
		return te
	}
	return nil
}

// Check parses the occurrence and returns the problem, if any. The span is
// narrowed to the offending token when the template text could be located
// exactly.
func (o Occurrence) Check() (any, *Problem) {
	res, err := o.Grammar.Parse(o.Template)
	if err == nil {
		return res, nil
	}

	p := &Problem{
		Pos:      o.Pos,
		End:      o.End,
		Category: category(o.Grammar),
		Template: o.Template,
		Err:      err,
	}
	var te *template.Error
	if o.Exact && errors.As(err, &te) {
		start, end := te.Span()
		p.Pos = o.Pos + token.Pos(start)
		p.End = o.Pos + token.Pos(end)
	}
	return nil, p
}

func category(g template.Grammar) string {
	if g == template.ArgumentGrammar {
		return CategoryArgument
	}
	return CategoryOption
}

// TagTemplates extracts the templates declared by a struct field tag.
// A malformed argument position is returned as a problem.
func TagTemplates(tag *ast.BasicLit) ([]Occurrence, []Problem) {
	if tag == nil || tag.Kind != token.STRING {
		return nil, nil
	}
	raw, err := strconv.Unquote(tag.Value)
	if err != nil {
		return nil, nil
	}

	var (
		occs     []Occurrence
		problems []Problem
		st       = reflect.StructTag(raw)
	)

	if v, ok := st.Lookup(cli.TagArgument); ok {
		pos, tmpl, found := strings.Cut(v, ",")
		if _, err := strconv.Atoi(strings.TrimSpace(pos)); !found || err != nil {
			problems = append(problems, Problem{
				Pos:      tag.Pos(),
				End:      tag.End(),
				Category: CategoryArgumentTag,
				Template: v,
				Err:      cli.ErrInvalidArgumentTag,
			})
		} else {
			occs = append(occs, locateInTag(tag, cli.TagArgument, v, len(pos)+1, template.ArgumentGrammar, tmpl))
		}
	}

	if v, ok := st.Lookup(cli.TagOption); ok {
		occs = append(occs, locateInTag(tag, cli.TagOption, v, 0, template.OptionGrammar, v))
	}

	return occs, problems
}

// locateInTag finds key:"value" inside a raw tag literal. Tags written as
// interpreted strings or with escapes fall back to the literal's span.
func locateInTag(tag *ast.BasicLit, key, value string, offset int, g template.Grammar, tmpl string) Occurrence {
	occ := Occurrence{Grammar: g, Template: tmpl, Pos: tag.Pos(), End: tag.End()}
	if !strings.HasPrefix(tag.Value, "`") {
		return occ
	}

	marker := key + `:"` + value + `"`
	for _, sep := range []string{"`", " "} {
		i := strings.Index(tag.Value, sep+marker)
		if i < 0 {
			continue
		}
		start := i + len(sep) + len(key) + 2 + offset
		occ.Pos = tag.Pos() + token.Pos(start)
		occ.End = occ.Pos + token.Pos(len(tmpl))
		occ.Exact = true
		break
	}
	return occ
}

// StringLiteral builds an occurrence for a template passed as a string
// literal expression.
func StringLiteral(expr ast.Expr, g template.Grammar, value string) Occurrence {
	occ := Occurrence{Grammar: g, Template: value, Pos: expr.Pos(), End: expr.End()}
	lit, ok := ast.Unparen(expr).(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return occ
	}
	if strings.HasPrefix(lit.Value, "`") || !strings.Contains(lit.Value, `\`) {
		occ.Pos = lit.Pos() + 1
		occ.End = occ.Pos + token.Pos(len(value))
		occ.Exact = true
	}
	return occ
}

// CheckFile reports every malformed template in the struct tags of file. It
// needs no type information.
func CheckFile(file *ast.File, report func(Problem)) {
	ast.Inspect(file, func(n ast.Node) bool {
		field, ok := n.(*ast.Field)
		if !ok || field.Tag == nil {
			return true
		}
		occs, problems := TagTemplates(field.Tag)
		for _, p := range problems {
			report(p)
		}
		for _, occ := range occs {
			if _, p := occ.Check(); p != nil {
				report(*p)
			}
		}
		return true
	})
}

// StructTemplates are the templates declared by the fields of one struct
// type. Problems holds tags whose argument position cannot be read.
type StructTemplates struct {
	Occurrences []Occurrence
	Problems    []Problem
}

// FileTemplates returns the tag templates of file grouped by struct type, so
// that the options of one command can be checked together. Nested struct
// types form groups of their own.
func FileTemplates(file *ast.File) []StructTemplates {
	var groups []StructTemplates
	ast.Inspect(file, func(n ast.Node) bool {
		st, ok := n.(*ast.StructType)
		if !ok || st.Fields == nil {
			return true
		}

		var group StructTemplates
		for _, field := range st.Fields.List {
			if field.Tag == nil {
				continue
			}
			occs, problems := TagTemplates(field.Tag)
			group.Occurrences = append(group.Occurrences, occs...)
			group.Problems = append(group.Problems, problems...)
		}
		if len(group.Occurrences) > 0 || len(group.Problems) > 0 {
			groups = append(groups, group)
		}
		return true
	})
	return groups
}
