package keys

import (
	"errors"
	"testing"

	evdev "github.com/holoplot/go-evdev"
)

func TestParseModifier(t *testing.T) {
	tests := []struct {
		tok  string
		want Mask
	}{
		{"super", Super},
		{"Super_R", Super},
		{"shift", Shift},
		{"ctrl", Control},
		{"Control_L", Control},
		{"alt", Mod1},
		{"meta", Mod1},
		{"hyper", Mod3},
		{"mod5", Mod5},
		{"lock", Lock},
		{"Num_Lock", Mod2},
		{"SHIFT", Shift},
		{"meh", Control | Shift | Mod1},
		{"Meh", Control | Shift | Mod1},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			got, err := ParseModifier(tt.tok)
			if err != nil {
				t.Fatalf("ParseModifier(%q) error = %v", tt.tok, err)
			}
			if got != tt.want {
				t.Errorf("ParseModifier(%q) = %v, want %v", tt.tok, got, tt.want)
			}
		})
	}
}

func TestParseModifierUnknown(t *testing.T) {
	_, err := ParseModifier("sup3r")
	if !errors.Is(err, ErrUnknownModifier) {
		t.Fatalf("ParseModifier() error = %v, want ErrUnknownModifier", err)
	}
	if got := err.Error(); got != `unknown modifier: "sup3r"` {
		t.Errorf("error text = %q", got)
	}
}

func TestParseModifiersReportsEveryToken(t *testing.T) {
	m, err := ParseModifiers([]string{"super", "foo", "shift", "bar"})
	if m != Super|Shift {
		t.Errorf("mask = %v, want super+shift", m)
	}
	if !errors.Is(err, ErrUnknownModifier) {
		t.Fatalf("error = %v, want ErrUnknownModifier", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Errorf("expected two joined errors, got %v", err)
	}
}

func TestCombinatorIsNotABit(t *testing.T) {
	meh, _ := ParseModifier("meh")
	if meh.Has(Super) || meh.Has(Lock) {
		t.Errorf("meh = %v must not contain super or lock", meh)
	}
	for _, n := range maskNames {
		if n.bit == meh {
			t.Errorf("meh has its own bit %v", n.bit)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		tok  string
		want Identity
	}{
		{"a", Key(uint16(evdev.KEY_A))},
		{"A", Key(uint16(evdev.KEY_A))},
		{"Return", Key(uint16(evdev.KEY_ENTER))},
		{"return", Key(uint16(evdev.KEY_ENTER))},
		{"Escape", Key(uint16(evdev.KEY_ESC))},
		{"1", Key(uint16(evdev.KEY_1))},
		{"super", Key(uint16(evdev.KEY_LEFTMETA))},
		{"Caps_Lock", Key(uint16(evdev.KEY_CAPSLOCK))},
		{"0x1c", Key(0x1c)},
		{"28", Key(28)},
		{"mouse1", Button(1)},
		{"mouse12", Button(12)},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			got, err := Resolve(tt.tok)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.tok, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.tok, got, tt.want)
			}
		})
	}
}

func TestResolveNumericAndNamedAgree(t *testing.T) {
	byName, _ := Resolve("Return")
	byHex, _ := Resolve("0x1c")
	byDec, _ := Resolve("28")
	if byName != byHex || byHex != byDec {
		t.Errorf("Return=%v 0x1c=%v 28=%v should be the same key", byName, byHex, byDec)
	}
}

func TestResolveUnknown(t *testing.T) {
	for _, tok := range []string{"", "NoSuchKey", "0xzz", "mouse0", "99999999"} {
		if _, err := Resolve(tok); !errors.Is(err, ErrUnknownKeysym) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnknownKeysym", tok, err)
		}
	}
}

func TestButtonsAreDisjointFromKeys(t *testing.T) {
	if Button(1) == Key(1) {
		t.Fatal("button 1 must not equal key code 1")
	}
}

func TestName(t *testing.T) {
	if got := Name(Key(uint16(evdev.KEY_ENTER))); got != "Return" {
		t.Errorf("Name(KEY_ENTER) = %q", got)
	}
	if got := Name(Button(3)); got != "mouse3" {
		t.Errorf("Name(Button(3)) = %q", got)
	}
	if got := Name(Key(0x2fe)); got != "0x2fe" {
		t.Errorf("Name(0x2fe) = %q", got)
	}
}

func TestDisplayNameUnderLocks(t *testing.T) {
	a := Key(uint16(evdev.KEY_A))
	if got := DisplayName(a, CapsLock); got != "A" {
		t.Errorf("DisplayName(a, caps) = %q, want A", got)
	}
	if got := DisplayName(a, NumLock); got != "a" {
		t.Errorf("DisplayName(a, num) = %q, want a", got)
	}
	kp := Key(uint16(evdev.KEY_KP1))
	if !LockAffectsKeysym(kp, NumLock) {
		t.Error("Num_Lock should affect keypad keys")
	}
	if LockAffectsKeysym(kp, CapsLock) {
		t.Error("Caps_Lock should not affect keypad keys")
	}
	if LockAffectsKeysym(Button(1), CapsLock|NumLock) {
		t.Error("locks never affect buttons")
	}
}

func TestStateTracksModifiersAndLocks(t *testing.T) {
	s := NewState(0)
	lshift := Key(uint16(evdev.KEY_LEFTSHIFT))
	rshift := Key(uint16(evdev.KEY_RIGHTSHIFT))
	caps := Key(uint16(evdev.KEY_CAPSLOCK))

	s.Update(Event{ID: lshift, Dir: Press})
	s.Update(Event{ID: rshift, Dir: Press})
	s.Update(Event{ID: lshift, Dir: Release})
	if !s.Mask().Has(Shift) {
		t.Fatal("shift should stay active while the right shift is held")
	}
	s.Update(Event{ID: rshift, Dir: Release})
	if s.Mask() != 0 {
		t.Fatalf("mask = %v, want none", s.Mask())
	}

	s.Update(Event{ID: caps, Dir: Press})
	s.Update(Event{ID: caps, Dir: Release})
	if s.Locks() != CapsLock || s.Mask() != Lock {
		t.Fatalf("locks = %v mask = %v after one caps tap", s.Locks(), s.Mask())
	}
	s.Update(Event{ID: caps, Dir: Press})
	if s.Locks() != 0 {
		t.Fatalf("locks = %v after second caps press", s.Locks())
	}
}

func TestTableIsSortedAndCanonical(t *testing.T) {
	tbl := Table()
	for i := 1; i < len(tbl); i++ {
		if tbl[i-1].ID.Code >= tbl[i].ID.Code {
			t.Fatalf("table not strictly ordered at %d: %v then %v", i, tbl[i-1].ID, tbl[i].ID)
		}
	}
}
