package window

import (
	"fmt"
	"strings"
)

// Key is a virtual-key code
type Key int

const (
	KeyEscape Key = 0x1B
	KeyPause  Key = 0x13
	KeyF1     Key = 0x70
	KeyF12    Key = 0x7B
)

// ParseKey resolves a config key name such as "ESC", "Pause" or "F9"
func ParseKey(name string) (Key, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "ESC", "ESCAPE":
		return KeyEscape, nil
	case "PAUSE":
		return KeyPause, nil
	}

	var f int
	if _, err := fmt.Sscanf(n, "F%d", &f); err == nil && f >= 1 && f <= 12 {
		return KeyF1 + Key(f-1), nil
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

func (k Key) String() string {
	switch {
	case k == KeyEscape:
		return "ESC"
	case k == KeyPause:
		return "Pause"
	case k >= KeyF1 && k <= KeyF12:
		return fmt.Sprintf("F%d", int(k-KeyF1)+1)
	}
	return fmt.Sprintf("VK_%#x", int(k))
}
