package stores_test

import (
	"context"
	"fmt"
	"log"

	"github.com/openfroyo/clitmpl/pkg/stores"
)

// ExampleOpen records a check run with one finding.
func ExampleOpen() {
	ctx := context.Background()
	store, err := stores.Open(ctx, ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	run := &stores.CheckRun{ID: "run-001", Paths: []string{"./..."}}
	if err := store.CreateRun(ctx, run); err != nil {
		log.Fatal(err)
	}

	err = store.AddFindings(ctx, run.ID, []stores.Finding{{
		File:      "cmd/main.go",
		Line:      12,
		Column:    18,
		EndColumn: 22,
		Code:      "unterminated_value_name",
		Kind:      "template",
		Severity:  "warning",
		Message:   "Encountered unterminated value name '<FILE'.",
	}})
	if err != nil {
		log.Fatal(err)
	}

	if err := store.FinishRun(ctx, run.ID, stores.RunStatusPassed, 1, 1, nil); err != nil {
		log.Fatal(err)
	}

	findings, err := store.ListFindings(ctx, run.ID, stores.FindingFilter{})
	if err != nil {
		log.Fatal(err)
	}
	for _, f := range findings {
		fmt.Printf("%s:%d:%d: %s %s\n", f.File, f.Line, f.Column, f.Code, f.Message)
	}
	// Output: cmd/main.go:12:18: unterminated_value_name Encountered unterminated value name '<FILE'.
}
