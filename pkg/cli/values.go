package cli

import (
	"encoding/json"
	"maps"
	"sort"
	"time"
)

// Values holds the converted arguments and options of one invocation, keyed
// by argument value name and option primary name.
type Values struct {
	// Command is the full command path, e.g. "app deploy".
	Command string

	// Args are the raw positional arguments.
	Args []string

	values map[string]any
	given  map[string]bool
}

func newValues(command string, args []string) *Values {
	return &Values{
		Command: command,
		Args:    args,
		values:  make(map[string]any),
		given:   make(map[string]bool),
	}
}

func (v *Values) put(name string, value any, given bool) {
	v.values[name] = value
	v.given[name] = given
}

// Get returns the value stored under name.
func (v *Values) Get(name string) (any, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Has reports whether name was given on the command line rather than
// defaulted.
func (v *Values) Has(name string) bool {
	return v.given[name]
}

func (v *Values) String(name string) string {
	s, _ := v.values[name].(string)
	return s
}

func (v *Values) Bool(name string) bool {
	b, _ := v.values[name].(bool)
	return b
}

func (v *Values) Int(name string) int {
	i, _ := v.values[name].(int)
	return i
}

func (v *Values) Float(name string) float64 {
	f, _ := v.values[name].(float64)
	return f
}

func (v *Values) Duration(name string) time.Duration {
	d, _ := v.values[name].(time.Duration)
	return d
}

func (v *Values) Strings(name string) []string {
	s, _ := v.values[name].([]string)
	return s
}

// Names returns the stored names in sorted order.
func (v *Values) Names() []string {
	names := make([]string, 0, len(v.values))
	for n := range v.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the stored values.
func (v *Values) Map() map[string]any {
	return maps.Clone(v.values)
}

// MarshalJSON renders the command path and values.
func (v *Values) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.values))
	for name, val := range v.values {
		if d, ok := val.(time.Duration); ok {
			val = d.String()
		}
		out[name] = val
	}
	return json.Marshal(struct {
		Command string         `json:"command"`
		Values  map[string]any `json:"values"`
	}{v.Command, out})
}
