package keys

import (
	"fmt"
	"time"
)

// Kind separates keyboard keys from mouse buttons. Both share the Identity
// type but never compare equal.
type Kind uint8

const (
	KindKey Kind = iota
	KindButton
)

// Identity is a key or button as the input layer reports it. For keys Code is
// the native (evdev) key code, for buttons it is the X-style button number
// (1 left, 2 middle, 3 right, 4-7 wheel, 8 back, 9 forward).
type Identity struct {
	Kind Kind
	Code uint16
}

// Key returns the identity of a keyboard key code.
func Key(code uint16) Identity { return Identity{Kind: KindKey, Code: code} }

// Button returns the identity of mouse button n.
func Button(n uint16) Identity { return Identity{Kind: KindButton, Code: n} }

func (id Identity) IsButton() bool { return id.Kind == KindButton }

func (id Identity) String() string {
	return Name(id)
}

// Direction is the transition of a key or button.
type Direction uint8

const (
	Press Direction = iota
	Release
)

func (d Direction) String() string {
	switch d {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Event is a normalized input event. Time is a monotonic offset from the
// moment capture started; only differences between two Times are meaningful.
// Grabbed is set when the event came from an exclusively grabbed device, so
// nothing else has seen it.
type Event struct {
	ID      Identity
	Dir     Direction
	Time    time.Duration
	Grabbed bool
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s)@%s", e.Dir, e.ID, e.Time)
}
