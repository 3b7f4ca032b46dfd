package template

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type parseOutcome struct {
	Option    *OptionResult
	OptionErr error
	Argument  *ArgumentResult
	ArgErr    error
}

func parseBoth(tmpl string) parseOutcome {
	var out parseOutcome
	out.Option, out.OptionErr = ParseOptionTemplate(tmpl)
	out.Argument, out.ArgErr = ParseArgumentTemplate(tmpl)
	return out
}

// Both parsers share no state, so concurrent calls on the same inputs must
// match a serial run. Run with -race.
func TestParse_Concurrent(t *testing.T) {
	inputs := []string{
		"-a|--bee <C>",
		"-v|--verbose|--loud [LEVEL]",
		"--foo [bar]",
		"<ENV>",
		"[TARGET]",
		"<A> <B>",
		"--x <",
		"-foo",
		"--foo <>",
		"<ENV",
		"",
	}

	want := make([]parseOutcome, len(inputs))
	for i, tmpl := range inputs {
		want[i] = parseBoth(tmpl)
	}

	const (
		workers = 32
		rounds  = 100
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				i := (w + r) % len(inputs)
				got := parseBoth(inputs[i])
				if diff := cmp.Diff(want[i], got); diff != "" {
					t.Errorf("%q: concurrent result differs (-serial +concurrent):\n%s", inputs[i], diff)
					return
				}
			}
		}()
	}
	wg.Wait()
}
