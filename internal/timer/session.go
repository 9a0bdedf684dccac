package timer

import "time"

// Mode selects which configured duration a session runs for.
type Mode int

const (
	ModeFocus Mode = iota
	ModeBreak
)

func (m Mode) String() string {
	switch m {
	case ModeFocus:
		return "focus"
	case ModeBreak:
		return "break"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "focus":
		return ModeFocus, true
	case "break":
		return ModeBreak, true
	}
	return ModeFocus, false
}

// Reason records why a session ended.
type Reason string

const (
	ReasonExpired  Reason = "expired"
	ReasonStopped  Reason = "stopped"
	ReasonSwitched Reason = "switched"
)

// SessionEnded describes one terminated session. EndedAt is always
// StartedAt+Elapsed and Elapsed never exceeds the mode's duration.
type SessionEnded struct {
	Mode      Mode
	StartedAt time.Time
	EndedAt   time.Time
	Elapsed   time.Duration
	Reason    Reason
}

// Snapshot is a consistent view of the engine state taken under one lock.
type Snapshot struct {
	Running      bool
	Mode         Mode
	StartedAt    time.Time // zero unless Running
	FocusMinutes int
	BreakMinutes int
	Remaining    time.Duration
}

const (
	MinMinutes = 1
	MaxMinutes = 180

	DefaultFocusMinutes = 45
	DefaultBreakMinutes = 5
)

// ClampMinutes constrains a duration setting to [MinMinutes, MaxMinutes].
func ClampMinutes(minutes int) int {
	if minutes < MinMinutes {
		return MinMinutes
	}
	if minutes > MaxMinutes {
		return MaxMinutes
	}
	return minutes
}
