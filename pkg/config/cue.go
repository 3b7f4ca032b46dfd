package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/token"
)

// decodeCUE closes val against the manifest schema and decodes it.
func (mp *ManifestParser) decodeCUE(val cue.Value, files ...string) *unit {
	u := newUnit(files...)

	if err := val.Err(); err != nil {
		u.errors = convertCUEErrors(err, CodeSyntax, u)
		return u
	}

	u.hasCommands = val.LookupPath(cue.ParsePath("commands")).Exists()
	walkCUE(val, "", u.positions)

	if err := mp.schemaRegistry.Unify(SchemaManifest, val); err != nil {
		u.errors = convertCUEErrors(err, CodeSchema, u)
		return u
	}

	if err := val.Decode(&u.manifest); err != nil {
		u.errors = []ValidationError{{
			File:     u.file(),
			Code:     CodeDecode,
			Message:  fmt.Sprintf("failed to decode manifest: %v", err),
			Severity: "error",
		}}
	}

	return u
}

// walkCUE records the position of every regular field and list element.
func walkCUE(v cue.Value, path string, positions map[string]position) {
	if path != "" {
		positions[path] = cuePosition(v)
	}

	switch v.Kind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return
		}
		for iter.Next() {
			walkCUE(iter.Value(), joinPath(path, iter.Selector().String()), positions)
		}
	case cue.ListKind:
		list, err := v.List()
		if err != nil {
			return
		}
		for i := 0; list.Next(); i++ {
			walkCUE(list.Value(), indexPath(path, i), positions)
		}
	}
}

func cuePosition(v cue.Value) position {
	pos := v.Pos()
	prefix := -1

	var lit *ast.BasicLit
	switch src := v.Source().(type) {
	case *ast.BasicLit:
		lit = src
	case *ast.Field:
		lit, _ = src.Value.(*ast.BasicLit)
	}
	if lit != nil && lit.Kind == token.STRING {
		pos = lit.Pos()
		prefix = literalPrefix(lit.Value)
	}

	return position{
		file:   pos.Filename(),
		line:   pos.Line(),
		column: pos.Column(),
		prefix: prefix,
	}
}

// literalPrefix returns the width of the opening delimiter of a single line
// CUE string literal such as "x" or #"x"#. Multi-line strings and literals
// with escapes return -1: byte offsets in the value do not map to columns.
func literalPrefix(raw string) int {
	hashes := len(raw) - len(strings.TrimLeft(raw, "#"))
	rest := raw[hashes:]
	if strings.HasPrefix(rest, `"""`) || strings.HasPrefix(rest, `'''`) {
		return -1
	}
	if !strings.HasPrefix(rest, `"`) && !strings.HasPrefix(rest, `'`) {
		return -1
	}
	if strings.Contains(rest, `\`) {
		return -1
	}
	return hashes + 1
}
