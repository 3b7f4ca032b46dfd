// Command clitmplvet reports malformed command line templates.
//
// It can run standalone or as a vet tool:
//
//	clitmplvet ./...
//	go vet -vettool=$(which clitmplvet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/openfroyo/clitmpl/pkg/analyzer"
)

func main() {
	singlechecker.Main(analyzer.Analyzer)
}
