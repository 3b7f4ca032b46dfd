package a

import (
	"example.com/app/pkg/cli"
	"example.com/app/pkg/template"
)

type Common struct {
	Verbose bool `option:"-v|--verbose"`
}

type Settings struct {
	Common

	Name   string   `argument:"0,<NAME>" description:"Name"`
	Rest   []string `argument:"1,[REST]"`
	Bad    string   `argument:"2,OPPS"`                            // want `Arguments must have a value name\.`
	Flag   bool     `option:"-d|--dd"`
	NoDash bool     `option:"d|dd"`                                // want `No long or short name for option has been specified\.`
	Pos    string   `argument:"x,<A>"`                             // want `argument tag must be`
	Two    int      `option:"--foo <A> <B>" description:"two"`     // want `Multiple option values are not supported\.`
	Open   string   `description:"open" option:"--open <FILE"`     // want `Encountered unterminated value name '<FILE'\.`
	Plain  string   `json:"plain"`
}

const digit = "--1x"

func calls() {
	template.ParseOptionTemplate("-f|--foo <A.B>") // want `Encountered invalid character '\.' in value name\.`
	template.MustParseArgumentTemplate("[OPTIONAL]")
	template.MustParseArgumentTemplate("--foo <BAR>") // want `Arguments can not contain options\.`
	template.ParseOptionTemplate(digit)               // want `Option names cannot start with a digit\.`

	var dynamic string
	template.ParseOptionTemplate(dynamic)

	_ = cli.OptionSpec{Template: "-foo|--bar"}                 // want `Short option names can not be longer than one character\.`
	_ = []cli.ArgumentSpec{{Position: 0, Template: "<A> <B>"}} // want `Multiple values are not supported\.`
	_ = &cli.OptionSpec{Default: "x", Template: "--f"}         // want `Long option names must consist of more than one character\.`
	_ = cli.ArgumentSpec{Template: "<REQUIRED>"}
}
