package cli

import (
	"errors"
	"fmt"
)

// ErrorClass classifies why a registration failed.
type ErrorClass string

const (
	// ErrorClassTemplate means a template violated the argument or option
	// grammar. The wrapped error is a *template.Error.
	ErrorClassTemplate ErrorClass = "template"

	// ErrorClassRule means the templates parsed but do not fit together,
	// e.g. two options share a name.
	ErrorClassRule ErrorClass = "rule"

	// ErrorClassSpec means the declaration itself is malformed: a missing
	// command name, an unsupported field type, an unknown value type.
	ErrorClassSpec ErrorClass = "spec"
)

// Rule errors wrapped by RegistrationError.
var (
	ErrDuplicatePosition        = errors.New("argument position already in use")
	ErrPositionGap              = errors.New("argument positions must be contiguous from 0")
	ErrRequiredAfterOptional    = errors.New("required argument cannot follow an optional argument")
	ErrVariadicNotLast          = errors.New("only the last argument may take multiple values")
	ErrDuplicateOptionName      = errors.New("option name already in use")
	ErrReservedOptionName       = errors.New("option name is reserved")
	ErrDuplicateValueName       = errors.New("value name already in use")
	ErrFlagMustBeBool           = errors.New("option without a value placeholder must be of type bool")
	ErrImplicitValueRequired    = errors.New("option with an optional value needs an implicit value")
	ErrInvalidDefault           = errors.New("default value does not match the value type")
	ErrDuplicateCommand         = errors.New("command name already in use")
	ErrUnsupportedFieldType     = errors.New("unsupported settings field type")
	ErrInvalidArgumentTag       = errors.New("argument tag must be \"<position>,<template>\"")
	ErrSettingsNotStructPointer = errors.New("settings must be a non-nil pointer to a struct")
	ErrValueOutOfRange          = errors.New("value out of range for the settings field")
)

// RegistrationError reports why a command could not be registered.
type RegistrationError struct {
	Class ErrorClass `json:"class"`

	// Command is the space separated command path.
	Command string `json:"command"`

	// Field locates the declaration: "arguments[0]", "options[2]" or a
	// settings struct field name.
	Field string `json:"field,omitempty"`

	// Template is the template being registered, if any.
	Template string `json:"template,omitempty"`

	Err error `json:"-"`
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	switch {
	case e.Field != "" && e.Template != "":
		return fmt.Sprintf("command %q: %s %q: %v", e.Command, e.Field, e.Template, e.Err)
	case e.Field != "":
		return fmt.Sprintf("command %q: %s: %v", e.Command, e.Field, e.Err)
	default:
		return fmt.Sprintf("command %q: %v", e.Command, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

func newTemplateError(command, field, tmpl string, err error) *RegistrationError {
	return &RegistrationError{Class: ErrorClassTemplate, Command: command, Field: field, Template: tmpl, Err: err}
}

func newRuleError(command, field, tmpl string, err error) *RegistrationError {
	return &RegistrationError{Class: ErrorClassRule, Command: command, Field: field, Template: tmpl, Err: err}
}

func newSpecError(command, field string, err error) *RegistrationError {
	return &RegistrationError{Class: ErrorClassSpec, Command: command, Field: field, Err: err}
}

// IsTemplateError reports whether err is a registration failure caused by a
// malformed template.
func IsTemplateError(err error) bool {
	return classOf(err) == ErrorClassTemplate
}

// IsRuleError reports whether err is a registration failure caused by
// templates that parse but conflict.
func IsRuleError(err error) bool {
	return classOf(err) == ErrorClassRule
}

// IsSpecError reports whether err is a registration failure caused by a
// malformed declaration.
func IsSpecError(err error) bool {
	return classOf(err) == ErrorClassSpec
}

func classOf(err error) ErrorClass {
	var e *RegistrationError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}
