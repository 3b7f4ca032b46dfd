// Package template parses the compact templates used to declare command-line
// arguments and options.
//
// # Grammar
//
//	<NAME>      required value placeholder
//	[NAME]      optional value placeholder
//	--NAME      long option name
//	-N          short option name (one character)
//	| or space  separator
//
// Any other text is scanned as a Literal token and ignored by both grammars.
//
// # Grammars
//
// ParseArgumentTemplate accepts exactly one named placeholder and no option
// names; the placeholder name is returned verbatim. ParseOptionTemplate accepts
// one or more option names and at most one placeholder; the placeholder name is
// upper-cased, because option values are rendered as metavariables in help
// output (--count=NUM) while argument names are shown as written.
//
// # Errors
//
// Every failure is a *Error carrying its ErrorKind, the template, the offending
// Token when there is one, and a fixed message. Lexical errors are raised before
// any grammar rule runs, and each parse stops at the first violation.
//
// # Concurrency
//
// All functions are pure: the same input always yields the same result or the
// same error, nothing is cached and no state is shared between calls. They may
// be called concurrently from any number of goroutines without locking, which
// is what the analyzer and the checker do.
package template
