package cli

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Struct tags read by Bind.
const (
	TagArgument    = "argument"
	TagOption      = "option"
	TagDescription = "description"
	TagDefault     = "default"
	TagImplicit    = "implicit"
	TagHidden      = "hidden"
)

var durationType = reflect.TypeOf(time.Duration(0))

type fieldBinding struct {
	index    []int
	field    string
	argument bool
	position int
	option   int
}

// Bind derives a CommandSpec from the tags of a settings struct:
//
//	type DeploySettings struct {
//		Env   string `argument:"0,<ENV>" description:"Target environment"`
//		Count int    `option:"-c|--count <NUM>" default:"1"`
//		Force bool   `option:"-f|--force"`
//	}
//
// Embedded structs contribute their tagged fields, so settings can be shared
// between commands. settings must be a pointer to a struct.
func Bind(name string, settings any) (CommandSpec, error) {
	spec, _, err := bind(name, settings)
	return spec, err
}

func bind(name string, settings any) (CommandSpec, []fieldBinding, error) {
	spec := CommandSpec{Name: name}

	rv := reflect.ValueOf(settings)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return spec, nil, newSpecError(name, "", ErrSettingsNotStructPointer)
	}

	var bindings []fieldBinding
	if err := bindStruct(&spec, &bindings, rv.Elem().Type(), nil); err != nil {
		return spec, nil, err
	}
	return spec, bindings, nil
}

func bindStruct(spec *CommandSpec, bindings *[]fieldBinding, t reflect.Type, parent []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if err := bindStruct(spec, bindings, f.Type, index); err != nil {
				return err
			}
			continue
		}

		argTag, isArg := f.Tag.Lookup(TagArgument)
		optTag, isOpt := f.Tag.Lookup(TagOption)
		if !isArg && !isOpt {
			continue
		}
		if !f.IsExported() {
			return newSpecError(spec.Name, f.Name, fmt.Errorf("%w: field is not exported", ErrUnsupportedFieldType))
		}

		typ, err := fieldValueType(f.Type)
		if err != nil {
			return newSpecError(spec.Name, f.Name, err)
		}
		for _, raw := range []string{f.Tag.Get(TagDefault), f.Tag.Get(TagImplicit)} {
			if err := checkRange(f.Type, typ, raw); err != nil {
				return newSpecError(spec.Name, f.Name, err)
			}
		}

		if isArg {
			pos, tmpl, ok := strings.Cut(argTag, ",")
			position, convErr := strconv.Atoi(strings.TrimSpace(pos))
			if !ok || convErr != nil {
				return newSpecError(spec.Name, f.Name, ErrInvalidArgumentTag)
			}
			spec.Arguments = append(spec.Arguments, ArgumentSpec{
				Position:    position,
				Template:    tmpl,
				Description: f.Tag.Get(TagDescription),
				Default:     f.Tag.Get(TagDefault),
				Type:        typ,
			})
			*bindings = append(*bindings, fieldBinding{index: index, field: f.Name, argument: true, position: position})
			continue
		}

		hidden, _ := strconv.ParseBool(f.Tag.Get(TagHidden))
		spec.Options = append(spec.Options, OptionSpec{
			Template:    optTag,
			Description: f.Tag.Get(TagDescription),
			Default:     f.Tag.Get(TagDefault),
			Implicit:    f.Tag.Get(TagImplicit),
			Type:        typ,
			Hidden:      hidden,
		})
		*bindings = append(*bindings, fieldBinding{index: index, field: f.Name, option: len(spec.Options) - 1})
	}
	return nil
}

func fieldValueType(t reflect.Type) (ValueType, error) {
	if t == durationType {
		return TypeDuration, nil
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString, nil
	case reflect.Bool:
		return TypeBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return TypeInt, nil
	case reflect.Float32, reflect.Float64:
		return TypeFloat, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return TypeStrings, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFieldType, t)
}

// checkRange rejects a tag value that parses for typ but does not fit the
// narrower field type t, e.g. "300" for an int8. Unparsable values are left
// to Compile.
func checkRange(t reflect.Type, typ ValueType, raw string) error {
	if raw == "" || (typ != TypeInt && typ != TypeFloat) {
		return nil
	}
	v, err := convert(typ, raw)
	if err != nil {
		return nil
	}
	if overflows(t, v) {
		return fmt.Errorf("%w: %s does not fit %s", ErrValueOutOfRange, raw, t)
	}
	return nil
}

func overflows(t reflect.Type, v any) bool {
	switch x := v.(type) {
	case int:
		return reflect.Zero(t).OverflowInt(int64(x))
	case float64:
		return reflect.Zero(t).OverflowFloat(x)
	}
	return false
}

// NewCommand binds settings, compiles the resulting spec and returns a cobra
// command that fills settings before calling run. A malformed template fails
// here, at registration, never at invocation.
func NewCommand[T any](name string, settings *T, run func(ctx context.Context, settings *T) error) (*cobra.Command, error) {
	spec, bindings, err := bind(name, settings)
	if err != nil {
		return nil, err
	}

	compiled, err := Compile(spec)
	if err != nil {
		return nil, relabel(err, spec, bindings)
	}

	return compiled.Cobra(func(ctx context.Context, values *Values) error {
		if err := apply(reflect.ValueOf(settings).Elem(), compiled, bindings, values); err != nil {
			return err
		}
		return run(ctx, settings)
	}), nil
}

// MustNewCommand is like NewCommand but panics if registration fails.
func MustNewCommand[T any](name string, settings *T, run func(ctx context.Context, settings *T) error) *cobra.Command {
	cmd, err := NewCommand(name, settings, run)
	if err != nil {
		panic(err)
	}
	return cmd
}

func apply(target reflect.Value, cmd *Command, bindings []fieldBinding, values *Values) error {
	for _, b := range bindings {
		var key string
		if b.argument {
			for _, arg := range cmd.Arguments {
				if arg.Position == b.position {
					key = arg.Name
				}
			}
		} else {
			key = cmd.Options[b.option].Name()
		}

		v, ok := values.Get(key)
		if !ok {
			continue
		}
		field := target.FieldByIndex(b.index)
		if overflows(field.Type(), v) {
			return fmt.Errorf("%w: %v does not fit field %s (%s)", ErrValueOutOfRange, v, b.field, field.Type())
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("cannot assign %s to field %s", rv.Type(), b.field)
		}
		field.Set(rv.Convert(field.Type()))
	}
	return nil
}

// relabel points a registration error at the struct field that declared the
// failing template.
func relabel(err error, spec CommandSpec, bindings []fieldBinding) error {
	re, ok := err.(*RegistrationError)
	if !ok {
		return err
	}
	for _, b := range bindings {
		var tmpl string
		if b.argument {
			for _, a := range spec.Arguments {
				if a.Position == b.position {
					tmpl = a.Template
				}
			}
		} else {
			tmpl = spec.Options[b.option].Template
		}
		if tmpl == re.Template {
			out := *re
			out.Field = b.field
			return &out
		}
	}
	return err
}
