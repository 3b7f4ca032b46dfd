package config

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

var yamlLine = regexp.MustCompile(`line (\d+)`)

// decodeYAML decodes a YAML manifest. The raw document is validated against
// the manifest schema before it is decoded, so unknown keys are reported.
func (mp *ManifestParser) decodeYAML(file string, data []byte) *unit {
	u := newUnit(file)

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		u.errors = yamlErrors(file, err, CodeSyntax)
		return u
	}
	if len(doc.Content) == 0 {
		return u
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		u.errors = []ValidationError{{
			File:     file,
			Line:     root.Line,
			Column:   root.Column,
			Code:     CodeSchema,
			Message:  "manifest must be a mapping",
			Severity: "error",
		}}
		return u
	}

	u.hasCommands = mappingValue(root, "commands") != nil
	walkYAML(root, "", file, u.positions)

	var raw map[string]interface{}
	if err := root.Decode(&raw); err != nil {
		u.errors = yamlErrors(file, err, CodeDecode)
		return u
	}
	if err := mp.schemaRegistry.ValidateAgainstSchema(context.Background(), SchemaManifest, raw); err != nil {
		u.errors = convertCUEErrors(err, CodeSchema, u)
		return u
	}

	if err := root.Decode(&u.manifest); err != nil {
		u.errors = yamlErrors(file, err, CodeDecode)
	}
	return u
}

// walkYAML records the position of every node below node.
func walkYAML(node *yaml.Node, path, file string, positions map[string]position) {
	if path != "" {
		positions[path] = yamlPosition(node, file)
	}

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			walkYAML(node.Content[i+1], joinPath(path, node.Content[i].Value), file, positions)
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			walkYAML(item, indexPath(path, i), file, positions)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			walkYAML(node.Alias, path, file, positions)
		}
	}
}

func yamlPosition(node *yaml.Node, file string) position {
	prefix := -1
	if node.Kind == yaml.ScalarNode {
		switch node.Style {
		case 0, yaml.TaggedStyle:
			prefix = 0
		case yaml.DoubleQuotedStyle, yaml.SingleQuotedStyle:
			prefix = 1
		}
	}
	return position{file: file, line: node.Line, column: node.Column, prefix: prefix}
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// yamlErrors converts yaml.v3 errors, which carry the line in their text.
func yamlErrors(file string, err error, code string) []ValidationError {
	msgs := []string{err.Error()}
	var te *yaml.TypeError
	if errors.As(err, &te) {
		msgs = te.Errors
	}

	out := make([]ValidationError, 0, len(msgs))
	for _, msg := range msgs {
		ve := ValidationError{File: file, Code: code, Message: msg, Severity: "error"}
		if m := yamlLine.FindStringSubmatch(msg); m != nil {
			ve.Line, _ = strconv.Atoi(m[1])
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{File: file, Code: code, Message: fmt.Sprint(err), Severity: "error"})
	}
	return out
}
