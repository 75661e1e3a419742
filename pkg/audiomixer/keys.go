package audiomixer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/thoas/go-funk"
)

// Key is a virtual-key code. Codes reported by the input hooks may carry a
// left/right modifier variant, use Canonical before comparing them
type Key uint32

const (
	KeyBackspace Key = 0x08
	KeyTab       Key = 0x09
	KeyEnter     Key = 0x0D
	KeyShift     Key = 0x10
	KeyCtrl      Key = 0x11
	KeyAlt       Key = 0x12
	KeyCapsLock  Key = 0x14
	KeyEsc       Key = 0x1B
	KeySpace     Key = 0x20
	KeyPageUp    Key = 0x21
	KeyPageDown  Key = 0x22
	KeyEnd       Key = 0x23
	KeyHome      Key = 0x24
	KeyLeft      Key = 0x25
	KeyUp        Key = 0x26
	KeyRight     Key = 0x27
	KeyDown      Key = 0x28
	KeyInsert    Key = 0x2D
	KeyDelete    Key = 0x2E
	KeyWin       Key = 0x5B
	KeyF1        Key = 0x70

	keyRightWin   Key = 0x5C
	keyLeftShift  Key = 0xA0
	keyRightShift Key = 0xA1
	keyLeftCtrl   Key = 0xA2
	keyRightCtrl  Key = 0xA3
	keyLeftAlt    Key = 0xA4
	keyRightAlt   Key = 0xA5

	// separates the symbols of a combo, "plus" stands in for the literal character
	comboSeparator = "+"
)

var symbolKeys = map[string]Key{
	"backspace": KeyBackspace,
	"tab":       KeyTab,
	"enter":     KeyEnter,
	"shift":     KeyShift,
	"ctrl":      KeyCtrl,
	"alt":       KeyAlt,
	"capslock":  KeyCapsLock,
	"esc":       KeyEsc,
	"space":     KeySpace,
	"pageup":    KeyPageUp,
	"pagedown":  KeyPageDown,
	"end":       KeyEnd,
	"home":      KeyHome,
	"left":      KeyLeft,
	"up":        KeyUp,
	"right":     KeyRight,
	"down":      KeyDown,
	"insert":    KeyInsert,
	"delete":    KeyDelete,
	"win":       KeyWin,
	"plus":      0xBB,
}

// punctuation on a US layout, shifted and unshifted variants share a code
var charKeys = map[rune]Key{
	';': 0xBA, ':': 0xBA,
	'=': 0xBB, '+': 0xBB,
	',': 0xBC, '<': 0xBC,
	'-': 0xBD, '_': 0xBD,
	'.': 0xBE, '>': 0xBE,
	'/': 0xBF, '?': 0xBF,
	'`': 0xC0, '~': 0xC0,
	'[': 0xDB, '{': 0xDB,
	'\\': 0xDC, '|': 0xDC,
	']': 0xDD, '}': 0xDD,
	'\'': 0xDE, '"': 0xDE,
}

var canonicalKeys = map[Key]Key{
	keyLeftShift:  KeyShift,
	keyRightShift: KeyShift,
	keyLeftCtrl:   KeyCtrl,
	keyRightCtrl:  KeyCtrl,
	keyLeftAlt:    KeyAlt,
	keyRightAlt:   KeyAlt,
	keyRightWin:   KeyWin,
}

// Canonical collapses left/right modifier variants into a single key
func (k Key) Canonical() Key {
	if canonical, ok := canonicalKeys[k]; ok {
		return canonical
	}

	return k
}

func (k Key) String() string {
	for symbol, key := range symbolKeys {
		if key == k && symbol != "plus" {
			return symbol
		}
	}

	if k >= KeyF1 && k < KeyF1+12 {
		return fmt.Sprintf("f%d", uint32(k-KeyF1)+1)
	}

	if (k >= 'A' && k <= 'Z') || (k >= '0' && k <= '9') {
		return strings.ToLower(string(rune(k)))
	}

	return fmt.Sprintf("vk(0x%02X)", uint32(k))
}

// ParseKey resolves a single key symbol, either a named key ("ctrl", "f5") or a printable character
func ParseKey(symbol string) (Key, error) {
	if symbol == "" {
		return 0, fmt.Errorf("empty key symbol")
	}

	if key, ok := symbolKeys[strings.ToLower(symbol)]; ok {
		return key, nil
	}

	if lower := strings.ToLower(symbol); len(lower) > 1 && lower[0] == 'f' {
		if fn, err := strconv.Atoi(lower[1:]); err == nil && fn >= 1 && fn <= 12 {
			return KeyF1 + Key(fn-1), nil
		}
	}

	runes := []rune(symbol)
	if len(runes) != 1 {
		return 0, fmt.Errorf("unknown key symbol %q", symbol)
	}

	r := runes[0]

	switch {
	case r <= unicode.MaxASCII && unicode.IsLetter(r):
		return Key(unicode.ToUpper(r)), nil
	case r >= '0' && r <= '9':
		return Key(r), nil
	}

	if key, ok := charKeys[r]; ok {
		return key, nil
	}

	return 0, fmt.Errorf("unknown key symbol %q", symbol)
}

// ParseCombo resolves a "ctrl+shift" style combo into its canonical keys, duplicates are dropped
func ParseCombo(combo string) ([]Key, error) {
	symbols := strings.Split(strings.TrimSpace(combo), comboSeparator)

	for idx, symbol := range symbols {
		symbols[idx] = strings.ToLower(strings.TrimSpace(symbol))
	}

	symbols = funk.UniqString(symbols)

	keys := make([]Key, 0, len(symbols))
	for _, symbol := range symbols {
		key, err := ParseKey(symbol)
		if err != nil {
			return nil, fmt.Errorf("parse combo %q: %w", combo, err)
		}

		keys = append(keys, key.Canonical())
	}

	return keys, nil
}
