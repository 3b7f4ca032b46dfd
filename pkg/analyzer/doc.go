// Package analyzer defines an analysis.Analyzer that reports malformed
// command line templates while code is being compiled or linted, so broken
// argument and option declarations never reach a running program.
//
// The tag rules are also exposed through CheckFile, which works on a plain
// *ast.File and is used by the check command.
package analyzer
