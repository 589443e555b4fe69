package keys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	evdev "github.com/holoplot/go-evdev"
)

// Mask is a set of modifier bits. The bit layout is the X11 core modifier
// layout so masks can be compared with server state directly.
type Mask uint16

const (
	Shift   Mask = xproto.ModMaskShift
	Lock    Mask = xproto.ModMaskLock
	Control Mask = xproto.ModMaskControl
	Mod1    Mask = xproto.ModMask1
	Mod2    Mask = xproto.ModMask2
	Mod3    Mask = xproto.ModMask3
	Mod4    Mask = xproto.ModMask4
	Mod5    Mask = xproto.ModMask5

	Alt   = Mod1
	Meta  = Mod1
	Hyper = Mod3
	Super = Mod4

	// LockBits are the bits driven by lock keys (Caps_Lock, Num_Lock).
	LockBits = Lock | Mod2
)

// ErrUnknownModifier is returned for a modifier token that is neither a
// modifier name nor a combinator alias.
var ErrUnknownModifier = errors.New("unknown modifier")

var maskNames = []struct {
	bit  Mask
	name string
}{
	{Shift, "shift"},
	{Lock, "lock"},
	{Control, "ctrl"},
	{Mod1, "alt"},
	{Mod2, "mod2"},
	{Mod3, "hyper"},
	{Mod4, "super"},
	{Mod5, "mod5"},
}

// Has reports whether every bit of v is set in m.
func (m Mask) Has(v Mask) bool { return m&v == v }

// WithoutLocks clears the lock driven bits.
func (m Mask) WithoutLocks() Mask { return m &^ LockBits }

func (m Mask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, n := range maskNames {
		if m&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

// modifierTokens maps every accepted modifier spelling to its bits. Left and
// right variants fold into the same bit.
var modifierTokens = map[string]Mask{
	"shift": Shift, "lshift": Shift, "rshift": Shift, "Shift_L": Shift, "Shift_R": Shift,
	"ctrl": Control, "control": Control, "lctrl": Control, "rctrl": Control, "Control_L": Control, "Control_R": Control,
	"alt": Alt, "lalt": Alt, "ralt": Alt, "Alt_L": Alt, "Alt_R": Alt,
	"meta": Meta, "lmeta": Meta, "rmeta": Meta, "Meta_L": Meta, "Meta_R": Meta,
	"super": Super, "lsuper": Super, "rsuper": Super, "Super_L": Super, "Super_R": Super,
	"hyper": Hyper, "lhyper": Hyper, "rhyper": Hyper, "Hyper_L": Hyper, "Hyper_R": Hyper,
	"mod1": Mod1, "mod2": Mod2, "mod3": Mod3, "mod4": Mod4, "mod5": Mod5,
	"lock": Lock, "Caps_Lock": Lock, "Shift_Lock": Lock, "Num_Lock": Mod2,
}

// combinators are aliases that expand to several modifiers. They are looked
// up before single modifiers and never become a bit of their own.
var combinators = map[string][]string{
	"meh": {"ctrl", "shift", "alt"},
}

// ParseModifier resolves a single modifier token.
func ParseModifier(tok string) (Mask, error) {
	tok = strings.TrimSpace(tok)
	if parts, ok := combinators[strings.ToLower(tok)]; ok {
		var m Mask
		for _, p := range parts {
			m |= modifierTokens[p]
		}
		return m, nil
	}
	if m, ok := modifierTokens[tok]; ok {
		return m, nil
	}
	if m, ok := modifierTokens[strings.ToLower(tok)]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModifier, tok)
}

// ParseModifiers ORs a token sequence into one mask. Every unknown token is
// reported.
func ParseModifiers(toks []string) (Mask, error) {
	var (
		m    Mask
		errs []error
	)
	for _, t := range toks {
		v, err := ParseModifier(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m |= v
	}
	return m, errors.Join(errs...)
}

// Locks is the set of active lock keys. It is tracked apart from the held
// modifiers because a lock stays active after its key is released.
type Locks uint8

const (
	CapsLock Locks = 1 << iota
	NumLock
	ScrollLock
)

// Mask returns the modifier bits an X server would report for the locks.
// Scroll_Lock has no modifier bit.
func (l Locks) Mask() Mask {
	var m Mask
	if l&CapsLock != 0 {
		m |= Lock
	}
	if l&NumLock != 0 {
		m |= Mod2
	}
	return m
}

func (l Locks) String() string {
	var parts []string
	if l&CapsLock != 0 {
		parts = append(parts, "caps")
	}
	if l&NumLock != 0 {
		parts = append(parts, "num")
	}
	if l&ScrollLock != 0 {
		parts = append(parts, "scroll")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// modifierKeys are the physical keys that hold a modifier bit while pressed.
var modifierKeys = map[Identity]Mask{
	Key(uint16(evdev.KEY_LEFTSHIFT)):  Shift,
	Key(uint16(evdev.KEY_RIGHTSHIFT)): Shift,
	Key(uint16(evdev.KEY_LEFTCTRL)):   Control,
	Key(uint16(evdev.KEY_RIGHTCTRL)):  Control,
	Key(uint16(evdev.KEY_LEFTALT)):    Alt,
	Key(uint16(evdev.KEY_RIGHTALT)):   Alt,
	Key(uint16(evdev.KEY_LEFTMETA)):   Super,
	Key(uint16(evdev.KEY_RIGHTMETA)):  Super,
}

// lockKeys are the keys that toggle a lock on press.
var lockKeys = map[Identity]Locks{
	Key(uint16(evdev.KEY_CAPSLOCK)):   CapsLock,
	Key(uint16(evdev.KEY_NUMLOCK)):    NumLock,
	Key(uint16(evdev.KEY_SCROLLLOCK)): ScrollLock,
}

// ModifierOf returns the modifier bit held by id, or 0.
func ModifierOf(id Identity) Mask { return modifierKeys[id] }

// LockOf returns the lock toggled by id, or 0.
func LockOf(id Identity) Locks { return lockKeys[id] }

// LockAffectsKeysym reports whether the active locks change the keysym the
// server would produce for id: Caps_Lock for letters, Num_Lock for the
// keypad.
func LockAffectsKeysym(id Identity, locks Locks) bool {
	if id.IsButton() {
		return false
	}
	if locks&CapsLock != 0 && isLetter(id) {
		return true
	}
	if locks&NumLock != 0 && isKeypad(id) {
		return true
	}
	return false
}

// State tracks held modifier keys and active locks. It is not safe for
// concurrent use; the dispatcher owns it.
type State struct {
	held  map[Identity]Mask
	locks Locks
}

func NewState(locks Locks) *State {
	return &State{held: make(map[Identity]Mask), locks: locks}
}

// Mask returns the held modifiers plus the lock bits.
func (s *State) Mask() Mask {
	var m Mask
	for _, bit := range s.held {
		m |= bit
	}
	return m | s.locks.Mask()
}

func (s *State) Locks() Locks { return s.locks }

// Update applies ev. A lock key toggles its lock on press; a modifier key is
// held between its press and release.
func (s *State) Update(ev Event) {
	if l := LockOf(ev.ID); l != 0 {
		if ev.Dir == Press {
			s.locks ^= l
		}
		return
	}
	bit := ModifierOf(ev.ID)
	if bit == 0 {
		return
	}
	if ev.Dir == Press {
		s.held[ev.ID] = bit
	} else {
		delete(s.held, ev.ID)
	}
}
