package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ValueNameAnnotation is the pflag annotation holding an option's
// placeholder name, e.g. "NUM" for "--count <NUM>".
const ValueNameAnnotation = "clitmpl_value_name"

// RunFunc receives the converted values of an invocation.
type RunFunc func(ctx context.Context, values *Values) error

// Cobra builds a cobra command tree for c. run is invoked for every leaf
// command and for any command declaring arguments or options; pure group
// commands print their help.
func (c *Command) Cobra(run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:          c.Use(),
		Short:        c.Short,
		Long:         c.Long,
		SilenceUsage: true,
	}

	group := len(c.Subcommands) > 0 && len(c.Arguments) == 0 && len(c.Options) == 0
	if !group || len(c.Arguments) > 0 {
		cmd.Args = c.positionalArgs()
	}

	flags := cmd.Flags()
	for _, opt := range c.Options {
		addFlag(flags, opt)
	}

	if run != nil && !group {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			values, err := c.collect(cmd.CommandPath(), cmd.Flags(), args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), values)
		}
	}

	for _, sub := range c.Subcommands {
		cmd.AddCommand(sub.Cobra(run))
	}
	return cmd
}

func (c *Command) positionalArgs() cobra.PositionalArgs {
	required := 0
	for _, arg := range c.Arguments {
		if arg.Required {
			required++
		}
	}
	if n := len(c.Arguments); n > 0 && c.Arguments[n-1].Variadic() {
		return cobra.MinimumNArgs(required)
	}
	return cobra.RangeArgs(required, len(c.Arguments))
}

// addFlag registers opt on fs. The primary name becomes the flag name, the
// first single-byte short name its shorthand, and every other name a hidden
// alias sharing the same value.
//
// pflag keys every flag by a long name, so a short name that is not the
// shorthand of the primary flag is registered under its own letter: "-b" in
// "-a|-b|--all" also answers to a hidden "--b", and a short-only option "-q"
// is listed as "-q, --q". One-character long names are rejected by the option
// grammar, so these names cannot clash with a declared option.
func addFlag(fs *pflag.FlagSet, opt Option) {
	name := opt.Name()
	primaryShort := ""
	if len(opt.ShortNames) > 0 {
		primaryShort = shorthand(opt.ShortNames[0])
	}

	switch opt.Type {
	case TypeBool:
		fs.BoolP(name, primaryShort, defaultOf(opt.Type, opt.Default).(bool), opt.Description)
	case TypeInt:
		fs.IntP(name, primaryShort, defaultOf(opt.Type, opt.Default).(int), opt.Description)
	case TypeFloat:
		fs.Float64P(name, primaryShort, defaultOf(opt.Type, opt.Default).(float64), opt.Description)
	case TypeDuration:
		fs.DurationP(name, primaryShort, defaultOf(opt.Type, opt.Default).(time.Duration), opt.Description)
	case TypeStrings:
		fs.StringSliceP(name, primaryShort, defaultOf(opt.Type, opt.Default).([]string), opt.Description)
	default:
		fs.StringP(name, primaryShort, opt.Default, opt.Description)
	}

	flag := fs.Lookup(name)
	flag.Hidden = opt.Hidden
	switch {
	case opt.ValueIsOptional && opt.Implicit != "":
		flag.NoOptDefVal = opt.Implicit
	case opt.HasValue && !opt.ValueIsOptional && opt.Type == TypeBool:
		// "--force <BOOL>" demands an explicit value
		flag.NoOptDefVal = ""
	}
	if opt.HasValue {
		_ = fs.SetAnnotation(name, ValueNameAnnotation, []string{opt.ValueName})
	}

	for _, alias := range aliases(opt, name, primaryShort) {
		a := fs.VarPF(flag.Value, alias, shorthand(alias), opt.Description)
		a.Hidden = true
		a.NoOptDefVal = flag.NoOptDefVal
	}
}

// aliases lists the names of opt not covered by the primary flag.
func aliases(opt Option, name, primaryShort string) []string {
	var out []string
	for _, n := range opt.Names() {
		if n == name || (n == primaryShort && len(opt.LongNames) > 0) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// shorthand returns s when pflag accepts it as a shorthand.
func shorthand(s string) string {
	if len(s) == 1 {
		return s
	}
	return ""
}

func defaultOf(typ ValueType, raw string) any {
	if raw != "" {
		if v, err := convert(typ, raw); err == nil {
			return v
		}
	}
	switch typ {
	case TypeBool:
		return false
	case TypeInt:
		return 0
	case TypeFloat:
		return float64(0)
	case TypeDuration:
		return time.Duration(0)
	case TypeStrings:
		return []string{}
	default:
		return ""
	}
}

func (c *Command) collect(path string, fs *pflag.FlagSet, args []string) (*Values, error) {
	values := newValues(path, args)

	for i, arg := range c.Arguments {
		switch {
		case i >= len(args):
			values.put(arg.Name, defaultOf(arg.Type, arg.Default), false)
		case arg.Variadic():
			values.put(arg.Name, append([]string(nil), args[i:]...), true)
		default:
			v, err := convert(arg.Type, args[i])
			if err != nil {
				return nil, fmt.Errorf("invalid value %q for argument %s: %w", args[i], arg.Name, err)
			}
			values.put(arg.Name, v, true)
		}
	}

	for _, opt := range c.Options {
		v, err := flagValue(fs, opt)
		if err != nil {
			return nil, err
		}
		given := false
		for _, n := range opt.Names() {
			if fs.Changed(n) {
				given = true
				break
			}
		}
		values.put(opt.Name(), v, given)
	}
	return values, nil
}

func flagValue(fs *pflag.FlagSet, opt Option) (any, error) {
	name := opt.Name()
	switch opt.Type {
	case TypeBool:
		return fs.GetBool(name)
	case TypeInt:
		return fs.GetInt(name)
	case TypeFloat:
		return fs.GetFloat64(name)
	case TypeDuration:
		return fs.GetDuration(name)
	case TypeStrings:
		return fs.GetStringSlice(name)
	default:
		return fs.GetString(name)
	}
}
