package main

import (
	"fmt"

	"github.com/bendahl/uinput"

	"github.com/andresousadotpt/hkd/internal/keys"
)

// virtualPrefix starts the name of every device we create, so capture can
// ignore them.
const virtualPrefix = "hkd virtual"

// VirtualInput injects keys and buttons through uinput. It works without a
// display server.
type VirtualInput struct {
	kbd   uinput.Keyboard
	mouse uinput.Mouse
}

func NewVirtualInput() (*VirtualInput, error) {
	kbd, err := uinput.CreateKeyboard("/dev/uinput", []byte(virtualPrefix+" keyboard"))
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	mouse, err := uinput.CreateMouse("/dev/uinput", []byte(virtualPrefix+" mouse"))
	if err != nil {
		kbd.Close()
		return nil, fmt.Errorf("create virtual mouse: %w", err)
	}
	return &VirtualInput{kbd: kbd, mouse: mouse}, nil
}

func (v *VirtualInput) Inject(id keys.Identity, dir keys.Direction) error {
	if !id.IsButton() {
		if dir == keys.Press {
			return v.kbd.KeyDown(int(id.Code))
		}
		return v.kbd.KeyUp(int(id.Code))
	}

	press := dir == keys.Press
	switch id.Code {
	case 1:
		if press {
			return v.mouse.LeftPress()
		}
		return v.mouse.LeftRelease()
	case 2:
		if press {
			return v.mouse.MiddlePress()
		}
		return v.mouse.MiddleRelease()
	case 3:
		if press {
			return v.mouse.RightPress()
		}
		return v.mouse.RightRelease()
	case 4, 5, 6, 7:
		// One wheel step per press; the release carries nothing.
		if !press {
			return nil
		}
		horizontal, delta := wheelStep(id.Code)
		return v.mouse.Wheel(horizontal, delta)
	}
	return fmt.Errorf("uinput cannot emit %v", id)
}

// wheelStep maps wheel buttons 4-7 to a uinput wheel movement.
func wheelStep(button uint16) (horizontal bool, delta int32) {
	switch button {
	case 4:
		return false, 1
	case 5:
		return false, -1
	case 6:
		return true, -1
	default:
		return true, 1
	}
}

func (v *VirtualInput) Close() {
	v.mouse.Close()
	v.kbd.Close()
}
