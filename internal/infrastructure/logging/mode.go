package logging

import (
	"fmt"
	"strings"
)

// Mode selects how much of an HTTP exchange is written to the log.
type Mode int

const (
	// ModeNormal logs one line per exchange: method, path and status.
	ModeNormal Mode = iota
	// ModeRaw additionally logs headers and bodies.
	ModeRaw
	// ModeNone disables exchange logging.
	ModeNone
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeRaw:
		return "raw"
	case ModeNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return ModeNormal, nil
	case "raw":
		return ModeRaw, nil
	case "none", "off":
		return ModeNone, nil
	default:
		return ModeNormal, fmt.Errorf("unknown logging mode %q", s)
	}
}

// UnmarshalText lets Mode be used directly in envconfig and file configs.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
