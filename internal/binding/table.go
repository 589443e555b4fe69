package binding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andresousadotpt/hkd/internal/keys"
)

// Line is one raw binding from the configuration: the key expression, the
// command it runs and where it was written.
type Line struct {
	Keys   string
	Action string
	Line   int
	Column int
}

// Trigger is the lookup key of the table.
type Trigger struct {
	Mask keys.Mask
	ID   keys.Identity
	Dir  keys.Direction
}

func (t Trigger) String() string {
	var b strings.Builder
	if t.Mask != 0 {
		b.WriteString(t.Mask.String())
		b.WriteString(" + ")
	}
	if t.Dir == keys.Release {
		b.WriteByte('~')
	}
	b.WriteString(keys.Name(t.ID))
	return b.String()
}

// Binding is a compiled table entry.
type Binding struct {
	Trigger
	Action string
	Line   int
}

// Override records a binding replaced by a later one with the same trigger.
type Override struct {
	Old, New Binding
}

// LockPolicy decides how active lock bits take part in matching.
type LockPolicy int

const (
	// LockIgnore matches with the lock bits first and falls back to a match
	// without them, so a binding never stops working because Caps_Lock or
	// Num_Lock is on.
	LockIgnore LockPolicy = iota
	// LockStrict requires the active mask, lock bits included, to equal the
	// binding mask.
	LockStrict
)

// ParseLockPolicy parses "ignore" or "strict". The empty string is LockIgnore.
func ParseLockPolicy(s string) (LockPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return LockIgnore, nil
	case "strict":
		return LockStrict, nil
	}
	return 0, fmt.Errorf("unknown lock policy %q", s)
}

func (p LockPolicy) String() string {
	if p == LockStrict {
		return "strict"
	}
	return "ignore"
}

// Table is the immutable compiled binding table. It is safe for concurrent
// reads.
type Table struct {
	entries   map[Trigger]Binding
	overrides []Override
}

// Lookup returns the binding for an exact trigger.
func (t *Table) Lookup(mask keys.Mask, id keys.Identity, dir keys.Direction) (Binding, bool) {
	if t == nil {
		return Binding{}, false
	}
	b, ok := t.entries[Trigger{Mask: mask, ID: id, Dir: dir}]
	return b, ok
}

// Match looks up an event observed with the active modifier mask.
func (t *Table) Match(active keys.Mask, id keys.Identity, dir keys.Direction, policy LockPolicy) (Binding, bool) {
	if b, ok := t.Lookup(active, id, dir); ok {
		return b, true
	}
	if policy == LockIgnore && active&keys.LockBits != 0 {
		return t.Lookup(active.WithoutLocks(), id, dir)
	}
	return Binding{}, false
}

func (t *Table) Len() int { return len(t.entries) }

// Bindings returns every entry ordered by key, direction and mask.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, 0, len(t.entries))
	for _, b := range t.entries {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Trigger, out[j].Trigger
		if a.ID.Kind != b.ID.Kind {
			return a.ID.Kind < b.ID.Kind
		}
		if a.ID.Code != b.ID.Code {
			return a.ID.Code < b.ID.Code
		}
		if a.Dir != b.Dir {
			return a.Dir < b.Dir
		}
		return a.Mask < b.Mask
	})
	return out
}

// Overrides lists the bindings that a later line replaced, in order.
func (t *Table) Overrides() []Override { return t.overrides }

// Compile builds a Table from the configuration lines in order. Every line
// is checked; if any line is invalid a *CompileError listing all of them is
// returned and no table is produced. A later line with the same trigger as an
// earlier one replaces it.
func Compile(lines []Line) (*Table, error) {
	t := &Table{entries: make(map[Trigger]Binding)}
	var errs []*LineError

	for _, ln := range lines {
		bs, lerrs := compileLine(ln)
		if len(lerrs) > 0 {
			errs = append(errs, lerrs...)
			continue
		}
		for _, b := range bs {
			if old, ok := t.entries[b.Trigger]; ok {
				t.overrides = append(t.overrides, Override{Old: old, New: b})
			}
			t.entries[b.Trigger] = b
		}
	}
	if len(errs) > 0 {
		return nil, &CompileError{Errs: errs}
	}
	return t, nil
}

// compileLine expands one line into its bindings, in declared order.
func compileLine(ln Line) ([]Binding, []*LineError) {
	at := func(le *LineError) *LineError {
		le.Line = ln.Line
		if ln.Column > 0 {
			le.Column += ln.Column - 1
		}
		le.Source = ln.Keys
		return le
	}

	e, perrs := parseLine(ln.Keys)
	if len(perrs) > 0 {
		for _, le := range perrs {
			at(le)
		}
		return nil, perrs
	}

	var (
		errs []*LineError
		mask keys.Mask
	)
	for _, m := range e.mods {
		bit, err := keys.ParseModifier(m.text)
		if err != nil {
			errs = append(errs, at(&LineError{Column: m.off + 1, Token: m.text, Err: err}))
			continue
		}
		mask |= bit
	}

	out := make([]Binding, 0, len(e.keys))
	for _, k := range e.keys {
		var (
			id  keys.Identity
			err error
		)
		if k.numeric {
			id, err = keys.ResolveCode(k.text)
		} else {
			id, err = keys.Resolve(k.text)
		}
		if err != nil {
			errs = append(errs, at(&LineError{Column: k.off + 1, Token: k.text, Err: err}))
			continue
		}
		out = append(out, Binding{
			Trigger: Trigger{Mask: mask, ID: id, Dir: e.dir},
			Action:  ln.Action,
			Line:    ln.Line,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}
