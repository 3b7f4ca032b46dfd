package analyzer

import (
	"go/ast"
	"go/constant"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"

	"github.com/openfroyo/clitmpl/pkg/template"
)

const doc = `check command line templates at compile time

The clitmpl analyzer parses every argument and option template it can find
without running the program:

  - struct field tags argument:"<position>,<template>" and option:"<template>"
  - constant arguments to ParseArgumentTemplate, ParseOptionTemplate and their
    Must variants from a .../pkg/template package
  - Template fields of ArgumentSpec and OptionSpec literals from a .../pkg/cli
    package

Each malformed template yields one diagnostic carrying the parser's message.`

// Analyzer reports malformed command line templates.
var Analyzer = &analysis.Analyzer{
	Name:     "clitmpl",
	Doc:      doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var parseFuncs = map[string]template.Grammar{
	"ParseArgumentTemplate":     template.ArgumentGrammar,
	"MustParseArgumentTemplate": template.ArgumentGrammar,
	"ParseOptionTemplate":       template.OptionGrammar,
	"MustParseOptionTemplate":   template.OptionGrammar,
}

var specTypes = map[string]template.Grammar{
	"ArgumentSpec": template.ArgumentGrammar,
	"OptionSpec":   template.OptionGrammar,
}

func run(pass *analysis.Pass) (any, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.Field)(nil),
		(*ast.CallExpr)(nil),
		(*ast.CompositeLit)(nil),
	}

	insp.Preorder(nodeFilter, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.Field:
			checkTag(pass, n)
		case *ast.CallExpr:
			checkCall(pass, n)
		case *ast.CompositeLit:
			checkSpecLiteral(pass, n)
		}
	})

	return nil, nil
}

func checkTag(pass *analysis.Pass, field *ast.Field) {
	if field.Tag == nil {
		return
	}
	occs, problems := TagTemplates(field.Tag)
	for _, p := range problems {
		pass.Report(p.Diagnostic())
	}
	for _, occ := range occs {
		report(pass, occ)
	}
}

func checkCall(pass *analysis.Pass, call *ast.CallExpr) {
	if len(call.Args) != 1 {
		return
	}
	fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
	if !ok || fn.Pkg() == nil || !inPackage(fn.Pkg(), "pkg/template") {
		return
	}
	g, ok := parseFuncs[fn.Name()]
	if !ok {
		return
	}
	if value, ok := constString(pass, call.Args[0]); ok {
		report(pass, StringLiteral(call.Args[0], g, value))
	}
}

func checkSpecLiteral(pass *analysis.Pass, lit *ast.CompositeLit) {
	named, ok := types.Unalias(pass.TypesInfo.TypeOf(lit)).(*types.Named)
	if !ok {
		return
	}
	obj := named.Obj()
	if obj.Pkg() == nil || !inPackage(obj.Pkg(), "pkg/cli") {
		return
	}
	g, ok := specTypes[obj.Name()]
	if !ok {
		return
	}

	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok || key.Name != "Template" {
			continue
		}
		if value, ok := constString(pass, kv.Value); ok {
			report(pass, StringLiteral(kv.Value, g, value))
		}
	}
}

func report(pass *analysis.Pass, occ Occurrence) {
	if _, p := occ.Check(); p != nil {
		pass.Report(p.Diagnostic())
	}
}

func constString(pass *analysis.Pass, expr ast.Expr) (string, bool) {
	tv, ok := pass.TypesInfo.Types[expr]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}
	return constant.StringVal(tv.Value), true
}

// inPackage matches packages by import path suffix so that vendored or
// forked copies are checked too.
func inPackage(pkg *types.Package, suffix string) bool {
	path := pkg.Path()
	return path == suffix || strings.HasSuffix(path, "/"+suffix)
}
