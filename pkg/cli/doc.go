// Package cli registers commands whose arguments and options are declared with
// templates, on top of cobra and pflag.
//
// A command is declared either as a CommandSpec (usually loaded from a
// manifest by package config) or as a tagged settings struct passed to
// NewCommand. Both paths go through Compile, which parses every template with
// package template and rejects the registration on the first failure:
//
//	spec := cli.CommandSpec{
//		Name:      "deploy",
//		Arguments: []cli.ArgumentSpec{{Position: 0, Template: "<ENV>"}},
//		Options:   []cli.OptionSpec{{Template: "-c|--count <NUM>", Type: cli.TypeInt, Default: "1"}},
//	}
//	cmd, err := cli.Compile(spec)
//	if err != nil {
//		return err // *RegistrationError wrapping a *template.Error
//	}
//	root := cmd.Cobra(run)
//
// An option's first long name becomes the pflag name and its first short name
// the shorthand. Remaining names are registered as hidden aliases.
package cli
