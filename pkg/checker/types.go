package checker

import (
	"fmt"
	"time"

	"github.com/openfroyo/clitmpl/pkg/stores"
)

// Finding kinds.
const (
	// KindTemplate is a template that violates its grammar.
	KindTemplate = "template"

	// KindManifest is a manifest problem other than a malformed template:
	// syntax, schema, or templates that conflict.
	KindManifest = "manifest"

	// KindPolicy is a naming policy violation.
	KindPolicy = "policy"
)

// Severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// File kinds.
const (
	FileGo   = "go"
	FileCUE  = "cue"
	FileYAML = "yaml"
)

const (
	// CodePolicy is the code of every policy violation.
	CodePolicy = "POLICY"

	// CodeInvalidArgumentTag is the code of an argument tag whose position
	// cannot be read.
	CodeInvalidArgumentTag = "invalid_argument_tag"
)

// Finding is one problem found by a check.
type Finding struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndColumn int    `json:"end_column,omitempty"`

	// Code is a template error code such as "option_without_name", a
	// manifest code, or CodePolicy.
	Code     string `json:"code"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Severity string `json:"severity"`

	// Source is the template text, when the finding is about one.
	Source string `json:"source,omitempty"`
}

// String renders the finding as file:line:col: severity: code message.
func (f Finding) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s %s", f.File, f.Line, f.Column, f.Severity, f.Code, f.Message)
}

func (f Finding) toStore() stores.Finding {
	return stores.Finding{
		File:      f.File,
		Line:      f.Line,
		Column:    f.Column,
		EndColumn: f.EndColumn,
		Code:      f.Code,
		Kind:      f.Kind,
		Severity:  f.Severity,
		Message:   f.Message,
		Source:    f.Source,
	}
}

// Report is the result of one check run.
type Report struct {
	RunID    string        `json:"run_id"`
	Paths    []string      `json:"paths"`
	Findings []Finding     `json:"findings"`
	Files    int           `json:"files"`
	Duration time.Duration `json:"duration"`
}

// Count returns the number of findings with severity.
func (r *Report) Count(severity string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}

// Failed reports whether the run should fail: on any error finding, or on
// any finding at all when strict.
func (r *Report) Failed(strict bool) bool {
	if strict {
		return len(r.Findings) > 0
	}
	return r.Count(SeverityError) > 0
}

// Status is the stored status of the run.
func (r *Report) Status() stores.RunStatus {
	if r.Count(SeverityError) > 0 {
		return stores.RunStatusFailed
	}
	return stores.RunStatusPassed
}
