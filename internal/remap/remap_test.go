package remap

import (
	"errors"
	"testing"

	"github.com/andresousadotpt/hkd/internal/keys"
)

func resolve(t *testing.T, tok string) keys.Identity {
	t.Helper()
	id, err := keys.Resolve(tok)
	if err != nil {
		t.Fatalf("Resolve(%q) error = %v", tok, err)
	}
	return id
}

func TestApply(t *testing.T) {
	tbl, err := New([]Pair{{From: "Caps_Lock", To: "Escape"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := tbl.Apply(resolve(t, "Caps_Lock")); got != resolve(t, "Escape") {
		t.Errorf("Apply(Caps_Lock) = %v, want Escape", got)
	}
	if got := tbl.Apply(resolve(t, "a")); got != resolve(t, "a") {
		t.Errorf("Apply(a) = %v, want a", got)
	}
}

func TestApplyIsNotChained(t *testing.T) {
	tbl, err := New([]Pair{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a, b, c := resolve(t, "a"), resolve(t, "b"), resolve(t, "c")
	if got := tbl.Apply(a); got != b {
		t.Errorf("Apply(a) = %v, want b (single rewrite)", got)
	}
	if got := tbl.Apply(tbl.Apply(a)); got != c {
		t.Errorf("a second Apply is a second rewrite: got %v, want c", got)
	}
}

func TestNilTableIsIdentity(t *testing.T) {
	var tbl *Table
	id := resolve(t, "Return")
	if tbl.Apply(id) != id || tbl.Len() != 0 {
		t.Error("nil table must be the identity")
	}
}

func TestNewLastWinsAndNumeric(t *testing.T) {
	tbl, err := New([]Pair{
		{From: "0x3a", To: "Escape"},
		{From: "Caps_Lock", To: "BackSpace"},
		{From: "mouse8", To: "mouse2"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := tbl.Apply(resolve(t, "Caps_Lock")); got != resolve(t, "BackSpace") {
		t.Errorf("Apply(Caps_Lock) = %v, want BackSpace", got)
	}
	if got := tbl.Apply(keys.Button(8)); got != keys.Button(2) {
		t.Errorf("Apply(mouse8) = %v, want mouse2", got)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestNewReportsBothSides(t *testing.T) {
	_, err := New([]Pair{
		{From: "Nope", To: "Escape", Line: 4},
		{From: "a", To: "AlsoNope", Line: 5},
	})
	if !errors.Is(err, keys.ErrUnknownKeysym) {
		t.Fatalf("New() error = %v, want ErrUnknownKeysym", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Errorf("want two errors, got %v", err)
	}
}
