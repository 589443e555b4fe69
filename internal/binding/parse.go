package binding

import (
	"fmt"
	"strings"

	"github.com/andresousadotpt/hkd/internal/keys"
)

// segment is a piece of a binding line with its 0-based byte offset.
type segment struct {
	text string
	off  int
}

// keyToken is one key of an expanded key expression.
type keyToken struct {
	text    string
	off     int
	numeric bool // written as [0x..] or [..]
}

// expr is a parsed binding line before key resolution.
type expr struct {
	mods []segment
	dir  keys.Direction
	keys []keyToken
}

// splitPlus splits s on '+' outside of {} and [] groups and trims every
// piece, keeping the offset of its first non-blank byte. A bracket standing
// alone as a key is not a group.
func splitPlus(s string) ([]segment, *LineError) {
	var (
		segs  []segment
		depth int
		start int
	)
	flush := func(end int) {
		raw := s[start:end]
		lead := len(raw) - len(strings.TrimLeft(raw, " \t"))
		segs = append(segs, segment{text: strings.TrimSpace(raw), off: start + lead})
	}
	for i, r := range s {
		if depth == 0 && (r == '[' || r == ']') && loneBracket(s, start, i) {
			continue
		}
		switch r {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth < 0 {
				return nil, &LineError{Column: i + 1, Token: string(r), Err: fmt.Errorf("%w: unbalanced %q", ErrSyntax, r)}
			}
		case '+':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, &LineError{Column: len(s), Token: s, Err: fmt.Errorf("%w: unclosed group", ErrSyntax)}
	}
	flush(len(s))
	return segs, nil
}

// loneBracket reports whether the bracket at i is the whole key of its
// segment, optionally after the release marker.
func loneBracket(s string, start, i int) bool {
	if strings.Trim(s[start:i], " \t~") != "" {
		return false
	}
	rest := s[i+1:]
	if j := strings.IndexByte(rest, '+'); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest) == ""
}

// parseLine turns "super + shift + ~{a-c}" into modifiers, a direction and
// the list of key tokens. Errors carry a Column relative to the line.
func parseLine(s string) (*expr, []*LineError) {
	segs, lerr := splitPlus(s)
	if lerr != nil {
		return nil, []*LineError{lerr}
	}
	var errs []*LineError
	for _, sg := range segs {
		if sg.text == "" {
			errs = append(errs, &LineError{Column: sg.off + 1, Err: fmt.Errorf("%w: empty key or modifier", ErrSyntax)})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	last := segs[len(segs)-1]
	e := &expr{mods: segs[:len(segs)-1], dir: keys.Press}

	text, off := last.text, last.off
	if strings.HasPrefix(text, "~") {
		e.dir = keys.Release
		trimmed := strings.TrimLeft(text[1:], " \t")
		off += len(text) - len(trimmed)
		text = trimmed
		if text == "" {
			return nil, []*LineError{{Column: off + 1, Token: "~", Err: fmt.Errorf("%w: release marker without a key", ErrSyntax)}}
		}
	}

	switch {
	case strings.HasPrefix(text, "{"):
		if !strings.HasSuffix(text, "}") {
			return nil, []*LineError{{Column: off + 1, Token: text, Err: fmt.Errorf("%w: group must end the key expression", ErrSyntax)}}
		}
		toks, lerr := expandGroup(text[1:len(text)-1], off+1)
		if lerr != nil {
			return nil, []*LineError{lerr}
		}
		e.keys = toks
	default:
		tok, lerr := singleToken(text, off)
		if lerr != nil {
			return nil, []*LineError{lerr}
		}
		e.keys = []keyToken{tok}
	}
	return e, nil
}

func singleToken(text string, off int) (keyToken, *LineError) {
	if strings.HasPrefix(text, "[") && text != "[" {
		if !strings.HasSuffix(text, "]") || len(text) < 3 {
			return keyToken{}, &LineError{Column: off + 1, Token: text, Err: fmt.Errorf("%w: malformed key code", ErrSyntax)}
		}
		inner := text[1 : len(text)-1]
		lead := len(inner) - len(strings.TrimLeft(inner, " \t"))
		return keyToken{text: strings.TrimSpace(inner), off: off + 1 + lead, numeric: true}, nil
	}
	return keyToken{text: text, off: off}, nil
}

// expandGroup expands the inside of {...}. A comma makes it an option set;
// otherwise a dash makes it a range; otherwise it is a one element set.
// off is the offset of the first byte after '{'.
func expandGroup(inner string, off int) ([]keyToken, *LineError) {
	if strings.Contains(inner, ",") {
		var (
			toks []keyToken
			pos  = off
		)
		for _, part := range strings.Split(inner, ",") {
			lead := len(part) - len(strings.TrimLeft(part, " \t"))
			text := strings.TrimSpace(part)
			if text == "" {
				return nil, &LineError{Column: pos + 1, Token: "{" + inner + "}", Err: fmt.Errorf("%w: empty option", ErrSyntax)}
			}
			tok, lerr := singleToken(text, pos+lead)
			if lerr != nil {
				return nil, lerr
			}
			toks = append(toks, tok)
			pos += len(part) + 1
		}
		return toks, nil
	}
	if strings.Contains(inner, "-") {
		chars, err := expandRange(inner)
		if err != nil {
			return nil, &LineError{Column: off + 1, Token: "{" + inner + "}", Err: err}
		}
		toks := make([]keyToken, len(chars))
		for i, c := range chars {
			toks[i] = keyToken{text: c, off: off}
		}
		return toks, nil
	}
	lead := len(inner) - len(strings.TrimLeft(inner, " \t"))
	text := strings.TrimSpace(inner)
	if text == "" {
		return nil, &LineError{Column: off, Token: "{}", Err: fmt.Errorf("%w: empty group", ErrSyntax)}
	}
	tok, lerr := singleToken(text, off+lead)
	if lerr != nil {
		return nil, lerr
	}
	return []keyToken{tok}, nil
}

// expandRange enumerates "a-c" as a, b, c. Both endpoints must be single
// characters of one class (digits, lower case or upper case letters) with
// start <= end.
func expandRange(inner string) ([]string, error) {
	lo, hi, _ := strings.Cut(inner, "-")
	rl, rh := []rune(strings.TrimSpace(lo)), []rune(strings.TrimSpace(hi))
	if len(rl) != 1 || len(rh) != 1 {
		return nil, fmt.Errorf("%w: %q endpoints must be single characters", ErrInvalidRange, inner)
	}
	a, b := rl[0], rh[0]
	if charClass(a) == classNone || charClass(a) != charClass(b) {
		return nil, fmt.Errorf("%w: %q endpoints are not comparable", ErrInvalidRange, inner)
	}
	if a > b {
		return nil, fmt.Errorf("%w: %q starts after it ends", ErrInvalidRange, inner)
	}
	out := make([]string, 0, b-a+1)
	for r := a; r <= b; r++ {
		out = append(out, string(r))
	}
	return out, nil
}

type class int

const (
	classNone class = iota
	classDigit
	classLower
	classUpper
)

func charClass(r rune) class {
	switch {
	case r >= '0' && r <= '9':
		return classDigit
	case r >= 'a' && r <= 'z':
		return classLower
	case r >= 'A' && r <= 'Z':
		return classUpper
	}
	return classNone
}
