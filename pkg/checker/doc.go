// Package checker walks a source tree for malformed argument and option
// templates.
//
// Go files are scanned for `argument` and `option` struct tags without type
// information. CUE and YAML files are parsed as command manifests when they
// declare commands and skipped otherwise. Templates that parse can be run
// through a policy.Engine, and every run can be recorded in a stores.Store.
//
// Template problems in Go tags are warnings, since the code still compiles;
// problems in manifests are errors. Report.Failed decides whether a run
// should fail a build.
//
//	c := checker.New(checker.Config{Manifests: true, Exclude: []string{"vendor"}})
//	report, err := c.Check(ctx, []string{"."})
//	if err != nil {
//		return err
//	}
//	for _, f := range report.Findings {
//		fmt.Println(f)
//	}
package checker
