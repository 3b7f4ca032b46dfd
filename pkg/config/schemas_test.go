package config

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSchemaRegistry_BuiltInSchemas(t *testing.T) {
	sr := NewSchemaRegistry()

	want := []string{SchemaArgument, SchemaCommand, SchemaManifest, SchemaOption}
	if diff := cmp.Diff(want, sr.ListSchemas()); diff != "" {
		t.Errorf("ListSchemas() mismatch (-want +got):\n%s", diff)
	}

	for _, name := range want {
		schema, ok := sr.GetSchema(name)
		if !ok {
			t.Fatalf("built-in schema %s not found", name)
		}
		if schema.Err() != nil {
			t.Errorf("built-in schema %s has errors: %v", name, schema.Err())
		}
	}
}

func TestSchemaRegistry_ValidateCommand(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()
	pos := 0

	tests := []struct {
		name    string
		command CommandConfig
		wantErr bool
	}{
		{
			name: "valid",
			command: CommandConfig{
				Name:      "deploy",
				Arguments: []ArgumentConfig{{Position: &pos, Template: "<ENV>"}},
				Options:   []OptionConfig{{Template: "--count <N>", Type: "int"}},
			},
		},
		{
			name:    "missing name",
			command: CommandConfig{Options: []OptionConfig{{Template: "--force"}}},
			wantErr: true,
		},
		{
			name:    "name with spaces",
			command: CommandConfig{Name: "deploy now"},
			wantErr: true,
		},
		{
			name:    "unknown value type",
			command: CommandConfig{Name: "deploy", Options: []OptionConfig{{Template: "--at <T>", Type: "time"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateCommand(ctx, tt.command)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaRegistry_RegisterSchema(t *testing.T) {
	sr := NewSchemaRegistry()

	if err := sr.RegisterSchema("team", `#Team: {owner: string & =~"^@"}`, "#Team"); err != nil {
		t.Fatalf("RegisterSchema() error = %v", err)
	}
	if err := sr.ValidateAgainstSchema(context.Background(), "team", map[string]string{"owner": "@ops"}); err != nil {
		t.Errorf("valid data rejected: %v", err)
	}
	if err := sr.ValidateAgainstSchema(context.Background(), "team", map[string]string{"owner": "ops"}); err == nil {
		t.Error("invalid data accepted")
	}

	if err := sr.RegisterSchema("broken", `#X: {`, "#X"); err == nil {
		t.Error("RegisterSchema() accepted invalid CUE")
	}
	if err := sr.RegisterSchema("missing", `#X: {}`, "#Y"); err == nil {
		t.Error("RegisterSchema() accepted a missing definition")
	}
	if err := sr.ValidateAgainstSchema(context.Background(), "nope", nil); err == nil {
		t.Error("ValidateAgainstSchema() accepted an unknown schema")
	}
}
