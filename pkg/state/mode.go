package state

import (
	"fmt"
	"strings"
)

// Mode selects how the HTTP intercept server handles a request.
type Mode int

const (
	// ModeRecord forwards requests upstream and appends every exchange.
	ModeRecord Mode = iota

	// ModeReplay answers requests from the transcript.
	ModeReplay
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModeRecord:
		return "record"
	case ModeReplay:
		return "replay"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Other returns the mode a toggle switches to.
func (m Mode) Other() Mode {
	if m == ModeRecord {
		return ModeReplay
	}
	return ModeRecord
}

// ParseMode parses "record" or "replay" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "record", "":
		return ModeRecord, nil
	case "replay":
		return ModeReplay, nil
	default:
		return ModeRecord, fmt.Errorf("invalid mode %q (must be record or replay)", s)
	}
}
