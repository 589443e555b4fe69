// Package taphold decides whether a press and release of a designated
// modifier key was a tap, which produces a different key, or a hold, which
// behaves as the modifier itself.
package taphold

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresousadotpt/hkd/internal/keys"
)

// State of one tracked key.
type State int

const (
	Idle State = iota
	Pressed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Kind tags an Output.
type Kind int

const (
	// Forward passes Event on as a logical event.
	Forward Kind = iota
	// Synthesize asks for Event to be injected; it is a logical event too.
	Synthesize
	// Suppress swallows Event.
	Suppress
)

func (k Kind) String() string {
	switch k {
	case Forward:
		return "forward"
	case Synthesize:
		return "synthesize"
	case Suppress:
		return "suppress"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Output is one result of feeding an event to the Machine.
type Output struct {
	Kind  Kind
	Event keys.Event
}

type tracked struct {
	tap   keys.Identity
	state State
	press keys.Event
}

// Machine runs one automaton per configured key. It is not safe for
// concurrent use; the dispatcher owns it.
type Machine struct {
	timeout time.Duration
	keys    map[keys.Identity]*tracked
}

// New returns a Machine for the given key → tap-target pairs.
func New(taps map[keys.Identity]keys.Identity, timeout time.Duration) *Machine {
	m := &Machine{timeout: timeout, keys: make(map[keys.Identity]*tracked, len(taps))}
	for k, tap := range taps {
		m.keys[k] = &tracked{tap: tap}
	}
	return m
}

func (m *Machine) Timeout() time.Duration { return m.timeout }

// Tracks reports whether id has a tap target.
func (m *Machine) Tracks(id keys.Identity) bool {
	_, ok := m.keys[id]
	return ok
}

// State returns the automaton state of id; untracked keys are always Idle.
func (m *Machine) State(id keys.Identity) State {
	if t, ok := m.keys[id]; ok {
		return t.state
	}
	return Idle
}

// Feed advances every automaton with ev and returns the resulting outputs in
// the order they must be handled. Events must be fed in capture order with
// auto-repeat already filtered out.
func (m *Machine) Feed(ev keys.Event) []Output {
	if ev.Dir == keys.Press {
		return m.press(ev)
	}
	return m.release(ev)
}

func (m *Machine) press(ev keys.Event) []Output {
	// Any press cancels the keys still waiting for their release, and their
	// own press goes out first so the new key sees them held.
	out := m.cancelPending(ev.ID)

	t, ok := m.keys[ev.ID]
	if !ok {
		return append(out, Output{Kind: Forward, Event: ev})
	}
	switch t.state {
	case Idle:
		t.state = Pressed
		t.press = ev
	}
	return append(out, Output{Kind: Suppress, Event: ev})
}

func (m *Machine) release(ev keys.Event) []Output {
	t, ok := m.keys[ev.ID]
	if !ok {
		return []Output{{Kind: Forward, Event: ev}}
	}
	switch t.state {
	case Pressed:
		t.state = Idle
		if ev.Time-t.press.Time < m.timeout {
			return []Output{
				{Kind: Synthesize, Event: keys.Event{ID: t.tap, Dir: keys.Press, Time: ev.Time, Grabbed: ev.Grabbed}},
				{Kind: Synthesize, Event: keys.Event{ID: t.tap, Dir: keys.Release, Time: ev.Time, Grabbed: ev.Grabbed}},
			}
		}
		return []Output{
			{Kind: Forward, Event: t.press},
			{Kind: Forward, Event: ev},
		}
	default:
		t.state = Idle
		return []Output{{Kind: Forward, Event: ev}}
	}
}

// cancelPending moves every Pressed key other than except to Cancelled and
// forwards their original presses, oldest first.
func (m *Machine) cancelPending(except keys.Identity) []Output {
	var pending []*tracked
	for id, t := range m.keys {
		if id != except && t.state == Pressed {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].press.Time != pending[j].press.Time {
			return pending[i].press.Time < pending[j].press.Time
		}
		return pending[i].press.ID.Code < pending[j].press.ID.Code
	})
	out := make([]Output, 0, len(pending)+1)
	for _, t := range pending {
		t.state = Cancelled
		out = append(out, Output{Kind: Forward, Event: t.press})
	}
	return out
}
