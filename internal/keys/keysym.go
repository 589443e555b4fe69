package keys

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// ErrUnknownKeysym is returned for a key token that is not a known name and
// not a number.
var ErrUnknownKeysym = errors.New("unknown keysym")

// keyName binds an evdev key code to its spellings. The first name is the
// canonical one used in diagnostics; the rest are aliases.
type keyName struct {
	code  evdev.EvCode
	names []string
}

// keyNames uses X keysym spellings so configurations written for X hotkey
// daemons resolve unchanged. Upper case letters resolve to the same key as
// their lower case form.
var keyNames = []keyName{
	{evdev.KEY_A, []string{"a", "A"}}, {evdev.KEY_B, []string{"b", "B"}},
	{evdev.KEY_C, []string{"c", "C"}}, {evdev.KEY_D, []string{"d", "D"}},
	{evdev.KEY_E, []string{"e", "E"}}, {evdev.KEY_F, []string{"f", "F"}},
	{evdev.KEY_G, []string{"g", "G"}}, {evdev.KEY_H, []string{"h", "H"}},
	{evdev.KEY_I, []string{"i", "I"}}, {evdev.KEY_J, []string{"j", "J"}},
	{evdev.KEY_K, []string{"k", "K"}}, {evdev.KEY_L, []string{"l", "L"}},
	{evdev.KEY_M, []string{"m", "M"}}, {evdev.KEY_N, []string{"n", "N"}},
	{evdev.KEY_O, []string{"o", "O"}}, {evdev.KEY_P, []string{"p", "P"}},
	{evdev.KEY_Q, []string{"q", "Q"}}, {evdev.KEY_R, []string{"r", "R"}},
	{evdev.KEY_S, []string{"s", "S"}}, {evdev.KEY_T, []string{"t", "T"}},
	{evdev.KEY_U, []string{"u", "U"}}, {evdev.KEY_V, []string{"v", "V"}},
	{evdev.KEY_W, []string{"w", "W"}}, {evdev.KEY_X, []string{"x", "X"}},
	{evdev.KEY_Y, []string{"y", "Y"}}, {evdev.KEY_Z, []string{"z", "Z"}},

	{evdev.KEY_1, []string{"1", "exclam"}}, {evdev.KEY_2, []string{"2", "at"}},
	{evdev.KEY_3, []string{"3", "numbersign"}}, {evdev.KEY_4, []string{"4", "dollar"}},
	{evdev.KEY_5, []string{"5", "percent"}}, {evdev.KEY_6, []string{"6", "asciicircum"}},
	{evdev.KEY_7, []string{"7", "ampersand"}}, {evdev.KEY_8, []string{"8", "asterisk"}},
	{evdev.KEY_9, []string{"9", "parenleft"}}, {evdev.KEY_0, []string{"0", "parenright"}},

	{evdev.KEY_MINUS, []string{"minus", "-", "underscore"}},
	{evdev.KEY_EQUAL, []string{"equal", "=", "plus"}},
	{evdev.KEY_LEFTBRACE, []string{"bracketleft", "[", "braceleft"}},
	{evdev.KEY_RIGHTBRACE, []string{"bracketright", "]", "braceright"}},
	{evdev.KEY_SEMICOLON, []string{"semicolon", ";", "colon"}},
	{evdev.KEY_APOSTROPHE, []string{"apostrophe", "'", "quotedbl"}},
	{evdev.KEY_GRAVE, []string{"grave", "`", "asciitilde"}},
	{evdev.KEY_BACKSLASH, []string{"backslash", "\\", "bar"}},
	{evdev.KEY_COMMA, []string{"comma", ",", "less"}},
	{evdev.KEY_DOT, []string{"period", ".", "greater"}},
	{evdev.KEY_SLASH, []string{"slash", "/", "question"}},
	{evdev.KEY_SPACE, []string{"space"}},

	{evdev.KEY_ESC, []string{"Escape", "Esc"}},
	{evdev.KEY_ENTER, []string{"Return", "Enter"}},
	{evdev.KEY_TAB, []string{"Tab"}},
	{evdev.KEY_BACKSPACE, []string{"BackSpace"}},
	{evdev.KEY_INSERT, []string{"Insert"}},
	{evdev.KEY_DELETE, []string{"Delete"}},
	{evdev.KEY_HOME, []string{"Home"}},
	{evdev.KEY_END, []string{"End"}},
	{evdev.KEY_PAGEUP, []string{"Prior", "Page_Up"}},
	{evdev.KEY_PAGEDOWN, []string{"Next", "Page_Down"}},
	{evdev.KEY_LEFT, []string{"Left"}},
	{evdev.KEY_RIGHT, []string{"Right"}},
	{evdev.KEY_UP, []string{"Up"}},
	{evdev.KEY_DOWN, []string{"Down"}},
	{evdev.KEY_SYSRQ, []string{"Print", "Sys_Req"}},
	{evdev.KEY_PAUSE, []string{"Pause", "Break"}},
	{evdev.KEY_COMPOSE, []string{"Menu"}},

	{evdev.KEY_LEFTSHIFT, []string{"Shift_L", "shift", "lshift"}},
	{evdev.KEY_RIGHTSHIFT, []string{"Shift_R", "rshift"}},
	{evdev.KEY_LEFTCTRL, []string{"Control_L", "ctrl", "lctrl"}},
	{evdev.KEY_RIGHTCTRL, []string{"Control_R", "rctrl"}},
	{evdev.KEY_LEFTALT, []string{"Alt_L", "alt", "lalt", "Meta_L"}},
	{evdev.KEY_RIGHTALT, []string{"Alt_R", "ralt", "Meta_R", "ISO_Level3_Shift"}},
	{evdev.KEY_LEFTMETA, []string{"Super_L", "super", "lsuper"}},
	{evdev.KEY_RIGHTMETA, []string{"Super_R", "rsuper"}},
	{evdev.KEY_CAPSLOCK, []string{"Caps_Lock"}},
	{evdev.KEY_NUMLOCK, []string{"Num_Lock"}},
	{evdev.KEY_SCROLLLOCK, []string{"Scroll_Lock"}},

	{evdev.KEY_F1, []string{"F1"}}, {evdev.KEY_F2, []string{"F2"}},
	{evdev.KEY_F3, []string{"F3"}}, {evdev.KEY_F4, []string{"F4"}},
	{evdev.KEY_F5, []string{"F5"}}, {evdev.KEY_F6, []string{"F6"}},
	{evdev.KEY_F7, []string{"F7"}}, {evdev.KEY_F8, []string{"F8"}},
	{evdev.KEY_F9, []string{"F9"}}, {evdev.KEY_F10, []string{"F10"}},
	{evdev.KEY_F11, []string{"F11"}}, {evdev.KEY_F12, []string{"F12"}},
	{evdev.KEY_F13, []string{"F13"}}, {evdev.KEY_F14, []string{"F14"}},
	{evdev.KEY_F15, []string{"F15"}}, {evdev.KEY_F16, []string{"F16"}},
	{evdev.KEY_F17, []string{"F17"}}, {evdev.KEY_F18, []string{"F18"}},
	{evdev.KEY_F19, []string{"F19"}}, {evdev.KEY_F20, []string{"F20"}},
	{evdev.KEY_F21, []string{"F21"}}, {evdev.KEY_F22, []string{"F22"}},
	{evdev.KEY_F23, []string{"F23"}}, {evdev.KEY_F24, []string{"F24"}},

	{evdev.KEY_KP0, []string{"KP_0", "KP_Insert"}}, {evdev.KEY_KP1, []string{"KP_1", "KP_End"}},
	{evdev.KEY_KP2, []string{"KP_2", "KP_Down"}}, {evdev.KEY_KP3, []string{"KP_3", "KP_Next"}},
	{evdev.KEY_KP4, []string{"KP_4", "KP_Left"}}, {evdev.KEY_KP5, []string{"KP_5", "KP_Begin"}},
	{evdev.KEY_KP6, []string{"KP_6", "KP_Right"}}, {evdev.KEY_KP7, []string{"KP_7", "KP_Home"}},
	{evdev.KEY_KP8, []string{"KP_8", "KP_Up"}}, {evdev.KEY_KP9, []string{"KP_9", "KP_Prior"}},
	{evdev.KEY_KPDOT, []string{"KP_Decimal", "KP_Delete"}},
	{evdev.KEY_KPENTER, []string{"KP_Enter"}},
	{evdev.KEY_KPPLUS, []string{"KP_Add"}},
	{evdev.KEY_KPMINUS, []string{"KP_Subtract"}},
	{evdev.KEY_KPASTERISK, []string{"KP_Multiply"}},
	{evdev.KEY_KPSLASH, []string{"KP_Divide"}},
	{evdev.KEY_KPEQUAL, []string{"KP_Equal"}},

	{evdev.KEY_MUTE, []string{"XF86AudioMute"}},
	{evdev.KEY_VOLUMEDOWN, []string{"XF86AudioLowerVolume"}},
	{evdev.KEY_VOLUMEUP, []string{"XF86AudioRaiseVolume"}},
	{evdev.KEY_PLAYPAUSE, []string{"XF86AudioPlay"}},
	{evdev.KEY_STOPCD, []string{"XF86AudioStop"}},
	{evdev.KEY_NEXTSONG, []string{"XF86AudioNext"}},
	{evdev.KEY_PREVIOUSSONG, []string{"XF86AudioPrev"}},
	{evdev.KEY_MICMUTE, []string{"XF86AudioMicMute"}},
	{evdev.KEY_BRIGHTNESSDOWN, []string{"XF86MonBrightnessDown"}},
	{evdev.KEY_BRIGHTNESSUP, []string{"XF86MonBrightnessUp"}},
	{evdev.KEY_CALC, []string{"XF86Calculator"}},
	{evdev.KEY_MAIL, []string{"XF86Mail"}},
	{evdev.KEY_HOMEPAGE, []string{"XF86HomePage"}},
	{evdev.KEY_SEARCH, []string{"XF86Search"}},
	{evdev.KEY_SLEEP, []string{"XF86Sleep"}},
}

// buttonNames are the canonical button spellings; any mouseN is accepted.
var buttonNames = map[uint16]string{
	1: "mouse1", 2: "mouse2", 3: "mouse3", 4: "mouse4", 5: "mouse5",
	6: "mouse6", 7: "mouse7", 8: "mouse8", 9: "mouse9",
}

var (
	byName      = make(map[string]Identity)
	byLowerName = make(map[string]Identity)
	canonical   = make(map[Identity]string)
)

func init() {
	for _, kn := range keyNames {
		id := Key(uint16(kn.code))
		canonical[id] = kn.names[0]
		for _, n := range kn.names {
			byName[n] = id
			if len(n) > 1 {
				byLowerName[strings.ToLower(n)] = id
			}
		}
	}
}

// Resolve maps a key token to its identity. The token is tried as a name,
// then case-insensitively for multi-letter names, then as mouseN, then as a
// 0x-prefixed hexadecimal or decimal key code.
func Resolve(tok string) (Identity, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Identity{}, fmt.Errorf("%w: empty key", ErrUnknownKeysym)
	}
	if id, ok := byName[tok]; ok {
		return id, nil
	}
	if len(tok) > 1 {
		if id, ok := byLowerName[strings.ToLower(tok)]; ok {
			return id, nil
		}
	}
	if id, ok := parseButton(tok); ok {
		return id, nil
	}
	if id, err := ResolveCode(tok); err == nil {
		return id, nil
	}
	return Identity{}, fmt.Errorf("%w: %q", ErrUnknownKeysym, tok)
}

// ResolveCode accepts only numeric key codes: 0x-prefixed hexadecimal or
// decimal.
func ResolveCode(tok string) (Identity, error) {
	tok = strings.TrimSpace(tok)
	var (
		n   uint64
		err error
	)
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		n, err = strconv.ParseUint(tok[2:], 16, 16)
	} else {
		n, err = strconv.ParseUint(tok, 10, 16)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q is not a key code", ErrUnknownKeysym, tok)
	}
	return Key(uint16(n)), nil
}

func parseButton(tok string) (Identity, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(tok), "mouse")
	if !ok || rest == "" {
		return Identity{}, false
	}
	n, err := strconv.ParseUint(rest, 10, 16)
	if err != nil || n == 0 {
		return Identity{}, false
	}
	return Button(uint16(n)), true
}

// Name returns the canonical name of id, or its numeric code when the name
// table has none.
func Name(id Identity) string {
	if id.IsButton() {
		if n, ok := buttonNames[id.Code]; ok {
			return n
		}
		return fmt.Sprintf("mouse%d", id.Code)
	}
	if n, ok := canonical[id]; ok {
		return n
	}
	return fmt.Sprintf("0x%x", id.Code)
}

// DisplayName is Name adjusted for the keysym the active locks would
// produce. Only letters change; keypad names already read the same.
func DisplayName(id Identity, locks Locks) string {
	n := Name(id)
	if !LockAffectsKeysym(id, locks) {
		return n
	}
	if isLetter(id) {
		return strings.ToUpper(n)
	}
	return n
}

// NamedKey is one row of the resolver table.
type NamedKey struct {
	ID      Identity
	Name    string
	Aliases []string
}

// Table lists every named key ordered by code.
func Table() []NamedKey {
	out := make([]NamedKey, 0, len(keyNames))
	for _, kn := range keyNames {
		out = append(out, NamedKey{
			ID:      Key(uint16(kn.code)),
			Name:    kn.names[0],
			Aliases: kn.names[1:],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Code < out[j].ID.Code })
	return out
}

func isLetter(id Identity) bool {
	n, ok := canonical[id]
	return ok && len(n) == 1 && n[0] >= 'a' && n[0] <= 'z'
}

func isKeypad(id Identity) bool {
	n, ok := canonical[id]
	return ok && strings.HasPrefix(n, "KP_")
}
