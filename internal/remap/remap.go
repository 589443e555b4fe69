// Package remap rewrites captured key identities before anything else sees
// them.
package remap

import (
	"errors"
	"fmt"

	"github.com/andresousadotpt/hkd/internal/keys"
)

// Pair is one configured substitution, as written.
type Pair struct {
	From string
	To   string
	Line int
}

// Table is an immutable identity substitution. The zero value and a nil
// *Table map every key to itself.
type Table struct {
	m map[keys.Identity]keys.Identity
}

// New resolves both sides of every pair. A later pair for the same source
// key replaces an earlier one. All unresolvable keys are reported together.
func New(pairs []Pair) (*Table, error) {
	t := &Table{m: make(map[keys.Identity]keys.Identity, len(pairs))}
	var errs []error
	for _, p := range pairs {
		from, err := keys.Resolve(p.From)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: remap source: %w", p.Line, err))
		}
		to, err2 := keys.Resolve(p.To)
		if err2 != nil {
			errs = append(errs, fmt.Errorf("line %d: remap target: %w", p.Line, err2))
		}
		if err != nil || err2 != nil {
			continue
		}
		if from == to {
			continue
		}
		t.m[from] = to
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// Apply returns the substitute for id, or id itself. It is applied once per
// event and never chained: Apply(a) is b even when b is remapped too.
func (t *Table) Apply(id keys.Identity) keys.Identity {
	if t == nil {
		return id
	}
	if to, ok := t.m[id]; ok {
		return to
	}
	return id
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.m)
}
