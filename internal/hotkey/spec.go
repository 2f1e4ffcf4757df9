package hotkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Binding ties a key combination such as "ctrl+alt+s" to an id passed back
// to the handler.
type Binding struct {
	ID   int
	Spec string
}

// Handler is invoked with the id of the binding that fired.
type Handler func(id int)

// ErrUnsupported is returned where global hotkeys are not available.
var ErrUnsupported = errors.New("hotkey: global hotkeys not supported on this platform")

// Modifier bits, matching the Win32 MOD_* values.
const (
	ModAlt   uint32 = 0x0001
	ModCtrl  uint32 = 0x0002
	ModShift uint32 = 0x0004
	ModWin   uint32 = 0x0008
)

const (
	vkNumpad0  = 0x60
	vkAdd      = 0x6B
	vkSubtract = 0x6D
)

var namedKeys = map[string]uint32{
	"esc":        0x1B,
	"escape":     0x1B,
	"space":      0x20,
	"enter":      0x0D,
	"return":     0x0D,
	"tab":        0x09,
	"backspace":  0x08,
	"insert":     0x2D,
	"delete":     0x2E,
	"home":       0x24,
	"end":        0x23,
	"pageup":     0x21,
	"pagedown":   0x22,
	"left":       0x25,
	"up":         0x26,
	"right":      0x27,
	"down":       0x28,
	"add":        vkAdd,
	"plus":       vkAdd,
	"kpadd":      vkAdd,
	"subtract":   vkSubtract,
	"minus":      vkSubtract,
	"kpsubtract": vkSubtract,
}

// Parse accepts strings like "alt+q", "ctrl+shift+F1" or "esc" and returns
// the modifier mask and virtual-key code.
func Parse(s string) (uint32, uint32, error) {
	if strings.TrimSpace(s) == "" {
		return 0, 0, fmt.Errorf("empty key")
	}
	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(strings.ToLower(parts[i]))
	}
	keyToken := parts[len(parts)-1]
	var mod uint32
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "alt", "menu":
			mod |= ModAlt
		case "ctrl", "control":
			mod |= ModCtrl
		case "shift":
			mod |= ModShift
		case "win", "meta", "super", "cmd":
			mod |= ModWin
		default:
			return 0, 0, fmt.Errorf("unknown modifier %q in %q", p, s)
		}
	}

	if len(keyToken) == 1 {
		ch := keyToken[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return mod, uint32(ch - 'a' + 'A'), nil
		case ch >= '0' && ch <= '9':
			return mod, uint32(ch), nil
		}
	}
	if v, ok := namedKeys[keyToken]; ok {
		return mod, v, nil
	}
	if strings.HasPrefix(keyToken, "f") {
		if n, err := strconv.Atoi(strings.TrimPrefix(keyToken, "f")); err == nil && n >= 1 && n <= 24 {
			return mod, 0x70 + uint32(n-1), nil
		}
	}
	for _, prefix := range []string{"numpad", "num", "kp"} {
		if rest, ok := strings.CutPrefix(keyToken, prefix); ok && len(rest) == 1 && rest[0] >= '0' && rest[0] <= '9' {
			return mod, vkNumpad0 + uint32(rest[0]-'0'), nil
		}
	}
	return 0, 0, fmt.Errorf("unsupported key token: %s", s)
}

// Validate checks that every binding parses and that no two share a combination.
func Validate(bindings []Binding) error {
	seen := make(map[[2]uint32]string, len(bindings))
	for _, b := range bindings {
		mod, vk, err := Parse(b.Spec)
		if err != nil {
			return fmt.Errorf("invalid hotkey '%s': %w", b.Spec, err)
		}
		k := [2]uint32{mod, vk}
		if prev, ok := seen[k]; ok {
			return fmt.Errorf("hotkey '%s' conflicts with '%s'", b.Spec, prev)
		}
		seen[k] = b.Spec
	}
	return nil
}
