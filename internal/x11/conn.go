// Package x11 talks to the X server: it injects synthesized keys through
// XTEST, reads the keyboard LED state, applies autorepeat settings and dumps
// the server keymap.
package x11

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/andresousadotpt/hkd/internal/engine"
	"github.com/andresousadotpt/hkd/internal/keys"
)

// keycodeOffset is the distance between evdev key codes and X keycodes.
const keycodeOffset = 8

type Conn struct {
	conn *xgb.Conn
	root xproto.Window
	log  *logrus.Entry
}

// Open connects to display, or to $DISPLAY when display is empty, and
// enables the XTEST extension.
func Open(display string, log *logrus.Entry) (*Conn, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrap(err, "x conn")
	}
	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "xtest init")
	}
	root := xproto.Setup(conn).DefaultScreen(conn).Root
	return &Conn{conn: conn, root: root, log: log.WithField("component", "x11")}, nil
}

func (c *Conn) Close() {
	c.conn.Close()
}

// Inject sends a fake key or button event to the server.
func (c *Conn) Inject(id keys.Identity, dir keys.Direction) error {
	typ, detail, err := fakeInput(id, dir)
	if err != nil {
		return err
	}
	err = xtest.FakeInputChecked(c.conn, typ, detail, xproto.TimeCurrentTime, c.root, 0, 0, 0).Check()
	return errors.Wrapf(err, "fake input %v %v", dir, id)
}

// fakeInput returns the XTEST event type and detail for id.
func fakeInput(id keys.Identity, dir keys.Direction) (byte, byte, error) {
	if id.IsButton() {
		if id.Code == 0 || id.Code > 255 {
			return 0, 0, errors.Errorf("button %d out of range", id.Code)
		}
		if dir == keys.Press {
			return xproto.ButtonPress, byte(id.Code), nil
		}
		return xproto.ButtonRelease, byte(id.Code), nil
	}
	kc := int(id.Code) + keycodeOffset
	if kc > 255 {
		return 0, 0, errors.Errorf("key code %d has no X keycode", id.Code)
	}
	if dir == keys.Press {
		return xproto.KeyPress, byte(kc), nil
	}
	return xproto.KeyRelease, byte(kc), nil
}

// Locks reads the keyboard LEDs.
func (c *Conn) Locks() (keys.Locks, error) {
	reply, err := xproto.GetKeyboardControl(c.conn).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "get keyboard control")
	}
	return locksFromLEDs(reply.LedMask), nil
}

// LED bits as numbered by the X keyboard driver.
const (
	ledCaps   = 1 << 0
	ledNum    = 1 << 1
	ledScroll = 1 << 2
)

func locksFromLEDs(mask uint32) keys.Locks {
	var l keys.Locks
	if mask&ledCaps != 0 {
		l |= keys.CapsLock
	}
	if mask&ledNum != 0 {
		l |= keys.NumLock
	}
	if mask&ledScroll != 0 {
		l |= keys.ScrollLock
	}
	return l
}

// SetAutorepeat turns autorepeat on and sets its delay and interval. The
// core protocol cannot set the rate, so that part goes through xset.
func (c *Conn) SetAutorepeat(delay, interval time.Duration) error {
	err := xproto.ChangeKeyboardControlChecked(c.conn, xproto.KbAutoRepeatMode,
		[]uint32{xproto.AutoRepeatModeOn}).Check()
	if err != nil {
		return errors.Wrap(err, "enable autorepeat")
	}
	args := xsetArgs(delay, interval)
	if args == nil {
		return nil
	}
	out, err := exec.Command("xset", args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "xset %v: %s", args, out)
	}
	c.log.WithFields(logrus.Fields{"delay": delay, "interval": interval}).Debug("autorepeat set")
	return nil
}

// xsetArgs builds `r rate <delay-ms> <per-second>`. A zero delay keeps the
// server's delay; a zero interval keeps its rate.
func xsetArgs(delay, interval time.Duration) []string {
	if delay <= 0 && interval <= 0 {
		return nil
	}
	args := []string{"r", "rate"}
	if delay <= 0 {
		delay = 660 * time.Millisecond
	}
	args = append(args, strconv.FormatInt(delay.Milliseconds(), 10))
	if interval > 0 {
		rate := int64(time.Second / interval)
		if rate < 1 {
			rate = 1
		}
		args = append(args, strconv.FormatInt(rate, 10))
	}
	return args
}

// Watch blocks until ctx is done or the server connection closes, in which
// case it returns engine.ErrConnectionLost.
func (c *Conn) Watch(ctx context.Context) error {
	lost := make(chan struct{})
	go func() {
		defer close(lost)
		for {
			ev, xerr := c.conn.WaitForEvent()
			if ev == nil && xerr == nil {
				return
			}
			if xerr != nil {
				c.log.WithField("error", xerr).Debug("x error")
			}
		}
	}()
	select {
	case <-ctx.Done():
		return nil
	case <-lost:
		return fmt.Errorf("x server: %w", engine.ErrConnectionLost)
	}
}
