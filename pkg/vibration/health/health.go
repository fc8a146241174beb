// Package health holds the per-component condition map shown on the
// overview screen. The map is built once from configuration and passed to
// whatever renders it.
package health

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
)

var titleCaser = cases.Title(language.English)

// State is the condition of one machine component
type State string

const (
	Good     State = "good"
	Warning  State = "warning"
	Critical State = "critical"
)

// States lists the states from best to worst
var States = []State{Good, Warning, Critical}

// ParseState accepts state names case-insensitively. Booleans map true to
// Good and false to Critical so older status files keep working.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good", "ok", "healthy", "true", "1":
		return Good, nil
	case "warning", "warn":
		return Warning, nil
	case "critical", "fault", "false", "0":
		return Critical, nil
	default:
		return "", common.NewConfigurationError("components",
			fmt.Sprintf("unknown health state %q", s), nil)
	}
}

// Title returns the display form, e.g. "Critical"
func (s State) Title() string {
	return titleCaser.String(string(s))
}

// Severity orders states: Good 0, Warning 1, Critical 2
func (s State) Severity() int {
	switch s {
	case Good:
		return 0
	case Warning:
		return 1
	default:
		return 2
	}
}

// Entry is one component and its state
type Entry struct {
	Component string `json:"component" yaml:"component" mapstructure:"component"`
	State     State  `json:"state" yaml:"state" mapstructure:"state"`
}

// StatusMap maps component names to states. It is immutable; With returns
// a modified copy.
type StatusMap struct {
	order  []string
	states map[string]State
}

// NewStatusMap builds a map preserving the entry order. Duplicate or empty
// component names are rejected.
func NewStatusMap(entries []Entry) (*StatusMap, error) {
	m := &StatusMap{
		order:  make([]string, 0, len(entries)),
		states: make(map[string]State, len(entries)),
	}
	for _, e := range entries {
		name := strings.TrimSpace(e.Component)
		if name == "" {
			return nil, common.NewConfigurationError("components", "component name must not be empty", nil)
		}
		if _, dup := m.states[name]; dup {
			return nil, common.NewConfigurationError("components",
				fmt.Sprintf("component %q listed twice", name), nil)
		}
		state, err := ParseState(string(e.State))
		if err != nil {
			return nil, err
		}
		m.order = append(m.order, name)
		m.states[name] = state
	}
	return m, nil
}

// DefaultComponents is the fan skid layout: every component starts Good
func DefaultComponents() []Entry {
	names := []string{
		"Motor Foundation",
		"Motor DE Bearing",
		"Motor NDE Bearing",
		"Motor Misalignment",
		"Driven 1 Foundation",
		"Driven 1 DE Bearing",
		"Driven 1 Transmission",
		"Driven 1 NDE Bearing",
		"Driven 1 Misalignment",
	}
	entries := make([]Entry, len(names))
	for i, n := range names {
		entries[i] = Entry{Component: n, State: Good}
	}
	return entries
}

// Get returns the state of a component
func (m *StatusMap) Get(component string) (State, bool) {
	s, ok := m.states[component]
	return s, ok
}

// With returns a copy with component set to state, appending it if new
func (m *StatusMap) With(component string, state State) *StatusMap {
	next := &StatusMap{
		order:  append([]string(nil), m.order...),
		states: make(map[string]State, len(m.states)+1),
	}
	for k, v := range m.states {
		next.states[k] = v
	}
	if _, ok := next.states[component]; !ok {
		next.order = append(next.order, component)
	}
	next.states[component] = state
	return next
}

// Entries returns the components in insertion order
func (m *StatusMap) Entries() []Entry {
	entries := make([]Entry, len(m.order))
	for i, name := range m.order {
		entries[i] = Entry{Component: name, State: m.states[name]}
	}
	return entries
}

// Len returns the number of components
func (m *StatusMap) Len() int {
	return len(m.order)
}

// Counts tallies components per state
func (m *StatusMap) Counts() map[State]int {
	counts := make(map[State]int, len(States))
	for _, s := range States {
		counts[s] = 0
	}
	for _, s := range m.states {
		counts[s]++
	}
	return counts
}

// Worst returns the most severe state present, Good for an empty map
func (m *StatusMap) Worst() State {
	worst := Good
	for _, s := range m.states {
		if s.Severity() > worst.Severity() {
			worst = s
		}
	}
	return worst
}

// FromVerdict maps a classification to a component state: healthy is Good,
// a fault graded as shock load is Critical and any other fault is Warning.
func FromVerdict(v classifier.Verdict) State {
	if !v.IsFault() {
		return Good
	}
	if v.Severity == classifier.SeverityShock {
		return Critical
	}
	return Warning
}
