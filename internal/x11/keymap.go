package x11

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/andresousadotpt/hkd/internal/keys"
)

// Keymap is a snapshot of the server keyboard and modifier mappings.
type Keymap struct {
	min     xproto.Keycode
	perCode int
	syms    []xproto.Keysym

	perMod  int
	modKeys []xproto.Keycode
}

// Keymap fetches the current mappings from the server.
func (c *Conn) Keymap() (*Keymap, error) {
	si := xproto.Setup(c.conn)
	count := byte(si.MaxKeycode - si.MinKeycode + 1)
	kmr, err := xproto.GetKeyboardMapping(c.conn, si.MinKeycode, count).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "get keyboard mapping")
	}
	mmr, err := xproto.GetModifierMapping(c.conn).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "get modifier mapping")
	}
	return &Keymap{
		min:     si.MinKeycode,
		perCode: int(kmr.KeysymsPerKeycode),
		syms:    kmr.Keysyms,
		perMod:  int(mmr.KeycodesPerModifier),
		modKeys: mmr.Keycodes,
	}, nil
}

// Keysyms returns every keysym column of keycode kc.
func (km *Keymap) Keysyms(kc xproto.Keycode) []xproto.Keysym {
	if kc < km.min || km.perCode == 0 {
		return nil
	}
	i := int(kc-km.min) * km.perCode
	if i+km.perCode > len(km.syms) {
		return nil
	}
	return km.syms[i : i+km.perCode]
}

// Modifier returns the modifier bit kc is mapped to, if any.
func (km *Keymap) Modifier(kc xproto.Keycode) keys.Mask {
	for i, k := range km.modKeys {
		if k == kc && kc != 0 && km.perMod > 0 {
			return keys.Mask(1 << (i / km.perMod))
		}
	}
	return 0
}

// Write prints one line per mapped keycode: the X keycode, the native code,
// the resolver name and the server keysyms.
func (km *Keymap) Write(w io.Writer) error {
	last := int(km.min) + len(km.syms)/max(km.perCode, 1) - 1
	for kc := int(km.min); kc <= last; kc++ {
		syms := km.Keysyms(xproto.Keycode(kc))
		if kc < keycodeOffset || allZero(syms) {
			continue
		}
		id := keys.Key(uint16(kc - keycodeOffset))
		line := fmt.Sprintf("%3d  0x%02x  %-16s %s", kc, id.Code, keys.Name(id), formatSyms(syms))
		if m := km.Modifier(xproto.Keycode(kc)); m != 0 {
			line += "  [" + m.String() + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func allZero(syms []xproto.Keysym) bool {
	for _, s := range syms {
		if s != 0 {
			return false
		}
	}
	return true
}

func formatSyms(syms []xproto.Keysym) string {
	// trailing NoSymbol columns
	n := len(syms)
	for n > 0 && syms[n-1] == 0 {
		n--
	}
	parts := make([]string, n)
	for i, s := range syms[:n] {
		if s >= 0x20 && s <= 0x7e {
			parts[i] = fmt.Sprintf("%q", rune(s))
		} else {
			parts[i] = fmt.Sprintf("0x%04x", uint32(s))
		}
	}
	return strings.Join(parts, " ")
}
