package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Built-in schema names.
const (
	SchemaManifest = "manifest"
	SchemaCommand  = "command"
	SchemaArgument = "argument"
	SchemaOption   = "option"
)

// SchemaRegistry manages CUE schemas for validation. Each schema is a CUE
// definition; unifying data with it closes the data against the definition.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	return newSchemaRegistry(cuecontext.New())
}

func newSchemaRegistry(ctx *cue.Context) *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}
	sr.registerBuiltInSchemas()
	return sr
}

// registerBuiltInSchemas registers the manifest definitions.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	defs := map[string]string{
		SchemaManifest: "#Manifest",
		SchemaCommand:  "#Command",
		SchemaArgument: "#Argument",
		SchemaOption:   "#Option",
	}
	for name, def := range defs {
		if err := sr.RegisterSchema(name, builtinManifestSchema, def); err != nil {
			panic(fmt.Sprintf("built-in schema %s: %v", name, err))
		}
	}
}

// RegisterSchema compiles src and registers the definition def (e.g.
// "#Command") under name.
func (sr *SchemaRegistry) RegisterSchema(name, src, def string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(src, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	schema := val.LookupPath(cue.ParsePath(def))
	if !schema.Exists() {
		return fmt.Errorf("schema %s: definition %s not found", name, def)
	}

	sr.schemas[name] = schema
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Unify unifies val with the named schema and validates that the result is
// concrete. The returned error carries the positions of val.
func (sr *SchemaRegistry) Unify(schemaName string, val cue.Value) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	return schema.Unify(val).Validate(cue.Concrete(true))
}

// ValidateAgainstSchema validates Go data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(_ context.Context, schemaName string, data interface{}) error {
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return sr.Unify(schemaName, dataVal)
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateManifest validates a manifest against the manifest schema.
func (sr *SchemaRegistry) ValidateManifest(ctx context.Context, manifest ManifestConfig) error {
	return sr.ValidateAgainstSchema(ctx, SchemaManifest, manifest)
}

// ValidateCommand validates a single command against the command schema.
func (sr *SchemaRegistry) ValidateCommand(ctx context.Context, command CommandConfig) error {
	return sr.ValidateAgainstSchema(ctx, SchemaCommand, command)
}

const builtinManifestSchema = `
#ValueType: "string" | "bool" | "int" | "float" | "duration" | "strings"

#Manifest: {
	name?:        string
	version?:     string
	description?: string
	commands: [...#Command]
}

#Command: {
	// Command names cannot contain template syntax.
	name:   string & =~"^[^\\s|<>\\[\\]]+$"
	short?: string
	long?:  string
	arguments?: [...#Argument]
	options?: [...#Option]
	commands?: [...#Command]
}

#Argument: {
	position?:    int & >=0
	template:     string
	description?: string
	default?:     string
	type?:        #ValueType
}

#Option: {
	template:     string
	description?: string
	default?:     string
	implicit?:    string
	type?:        #ValueType
	hidden?:      bool
}
`
