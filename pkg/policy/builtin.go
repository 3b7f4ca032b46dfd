package policy

// Builtin policy names.
const (
	PolicyLongOptionKebabCase   = "long-option-kebab-case"
	PolicyValueNameUpperCase    = "value-name-upper-case"
	PolicyNoDuplicateShortNames = "no-duplicate-short-names"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		longOptionKebabCasePolicy(),
		valueNameUpperCasePolicy(),
		noDuplicateShortNamesPolicy(),
	}
}

func longOptionKebabCasePolicy() Policy {
	return Policy{
		Name:        PolicyLongOptionKebabCase,
		Description: "Long option names are lowercase words joined by hyphens",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"naming", "option"},
		Rego: `package clitmpl.policies.kebab

deny contains violation if {
	some name in input.option.long_names
	not regex.match("^[a-z0-9]+(-[a-z0-9]+)*$", name)
	violation := {
		"message": sprintf("long option name '--%s' should be kebab-case", [name]),
	}
}
`,
	}
}

func valueNameUpperCasePolicy() Policy {
	return Policy{
		Name:        PolicyValueNameUpperCase,
		Description: "Argument value names are written in upper case",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"naming", "argument"},
		Rego: `package clitmpl.policies.uppercase

deny contains violation if {
	value := input.argument.value
	upper(value) != value
	violation := {
		"message": sprintf("argument value name '%s' should be upper case", [value]),
	}
}
`,
	}
}

func noDuplicateShortNamesPolicy() Policy {
	return Policy{
		Name:        PolicyNoDuplicateShortNames,
		Description: "A short option name is used by one option of a command only",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"option"},
		Rego: `package clitmpl.policies.shortnames

deny contains violation if {
	some name in {n | some n in input.option.short_names}
	count([n | some n in input.command_short_names; n == name]) > 1
	violation := {
		"message": sprintf("short option name '-%s' is used more than once in the command", [name]),
	}
}
`,
	}
}
