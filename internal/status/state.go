package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/vitalchat/internal/bus"
)

// State represents a runtime state of some supervised component.
type State string

// Daemon states.
const (
	Booting      State = "BOOTING"
	AuthRequired State = "AUTH_REQUIRED"
	Ready        State = "READY"
	Error        State = "ERROR"
)

// Table lists, for each state, the states it may move to.
type Table map[State][]State

// DaemonTransitions defines allowed daemon state transitions.
var DaemonTransitions = Table{
	Booting:      {AuthRequired, Ready, Error},
	AuthRequired: {Ready, Error},
	Ready:        {AuthRequired, Error},
	Error:        {Booting},
}

// Machine tracks and enforces state transitions against a Table.
type Machine struct {
	mu       sync.RWMutex
	current  State
	table    Table
	bus      *bus.Bus
	kind     string
	scope    string
	onChange func(StatusChange)
}

// New creates a machine starting in initial. Every successful transition is
// published on b (when non-nil) under kind, tagged with scope.
func New(initial State, table Table, b *bus.Bus, kind, scope string) *Machine {
	return &Machine{
		current: initial,
		table:   table,
		bus:     b,
		kind:    kind,
		scope:   scope,
	}
}

// NewMachine creates the daemon state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return New(Booting, DaemonTransitions, b, bus.KindSessionStatus, "daemon")
}

// SetOnChange registers a callback invoked after every transition, outside the lock.
func (m *Machine) SetOnChange(fn func(StatusChange)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	allowed := m.table[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	change := StatusChange{Scope: m.scope, From: m.current, To: to}
	m.current = to
	onChange := m.onChange
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      m.kind,
			Timestamp: time.Now(),
			Payload:   change,
		})
	}
	if onChange != nil {
		onChange(change)
	}
	return nil
}

// Is reports whether the machine is currently in any of the given states.
func (m *Machine) Is(states ...State) bool {
	return slices.Contains(states, m.Current())
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	Scope string
	From  State
	To    State
}
