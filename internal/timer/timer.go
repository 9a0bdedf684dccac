package timer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config configures a Timer. Zero values fall back to defaults.
type Config struct {
	FocusMinutes int
	BreakMinutes int
	TickInterval time.Duration
	// CloseOnSwitch emits a SessionEnded for the abandoned session when a
	// different mode is started while one is running.
	CloseOnSwitch bool
	Clock         Clock
}

// Timer is the focus/break session clock. All state is guarded by mu and
// listeners are always invoked after mu is released, so they may call back
// into the Timer.
type Timer struct {
	mu       sync.Mutex
	clock    Clock
	logger   zerolog.Logger
	interval time.Duration

	closeOnSwitch bool

	running      bool
	mode         Mode
	startedAt    time.Time
	anchor       time.Time
	focusMinutes int
	breakMinutes int

	endedListeners    []func(SessionEnded)
	reminderListeners []func(Mode)
}

func New(cfg Config, logger zerolog.Logger) *Timer {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	focus := cfg.FocusMinutes
	if focus == 0 {
		focus = DefaultFocusMinutes
	}
	brk := cfg.BreakMinutes
	if brk == 0 {
		brk = DefaultBreakMinutes
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &Timer{
		clock:         clock,
		logger:        logger.With().Str("component", "session-clock").Logger(),
		interval:      interval,
		closeOnSwitch: cfg.CloseOnSwitch,
		mode:          ModeFocus,
		anchor:        clock.Now(),
		focusMinutes:  ClampMinutes(focus),
		breakMinutes:  ClampMinutes(brk),
	}
}

// OnSessionEnded registers fn to run once per terminated session.
func (t *Timer) OnSessionEnded(fn func(SessionEnded)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endedListeners = append(t.endedListeners, fn)
}

// OnReminder registers fn to run when a session expires naturally, after
// the SessionEnded listeners for the same session.
func (t *Timer) OnReminder(fn func(Mode)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reminderListeners = append(t.reminderListeners, fn)
}

func (t *Timer) StartFocus() { t.start(ModeFocus) }

func (t *Timer) StartBreak() { t.start(ModeBreak) }

func (t *Timer) start(mode Mode) {
	t.mu.Lock()
	now := t.clock.Now()

	var ended []SessionEnded
	if t.running && t.mode != mode {
		t.logger.Info().
			Str("from", t.mode.String()).
			Str("to", mode.String()).
			Dur("elapsed", t.elapsedLocked(now)).
			Bool("recorded", t.closeOnSwitch).
			Msg("Mode switched while running")
		if t.closeOnSwitch {
			ended = append(ended, t.endLocked(now, ReasonSwitched))
		}
	}

	t.running = true
	t.mode = mode
	t.startedAt = now
	t.anchor = now
	t.logger.Debug().Str("mode", mode.String()).Time("started_at", now).Msg("Session started")

	listeners := t.endedListenersLocked()
	t.mu.Unlock()

	for _, e := range ended {
		for _, fn := range listeners {
			fn(e)
		}
	}
}

// Stop ends the running session and emits SessionEnded. When idle it only
// resets the idle anchor.
func (t *Timer) Stop() {
	t.mu.Lock()
	now := t.clock.Now()
	if !t.running {
		t.anchor = now
		t.mu.Unlock()
		return
	}

	ended := t.endLocked(now, ReasonStopped)
	listeners := t.endedListenersLocked()
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(ended)
	}
}

// Reset restarts the running session's countdown. When idle it only resets
// the idle anchor.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anchor = t.clock.Now()
	if t.running {
		t.startedAt = t.anchor
	}
}

// SetInterval sets the focus duration in minutes, clamped to [1,180]. A
// running focus session is re-armed.
func (t *Timer) SetInterval(minutes int) {
	t.setMinutes(ModeFocus, minutes)
}

// SetBreakInterval sets the break duration in minutes, clamped to [1,180]. A
// running break session is re-armed.
func (t *Timer) SetBreakInterval(minutes int) {
	t.setMinutes(ModeBreak, minutes)
}

func (t *Timer) setMinutes(mode Mode, minutes int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	clamped := ClampMinutes(minutes)
	if mode == ModeFocus {
		t.focusMinutes = clamped
	} else {
		t.breakMinutes = clamped
	}
	if t.running && t.mode == mode {
		t.startedAt = t.clock.Now()
		t.anchor = t.startedAt
	}
}

// Tick checks the running session for expiry. On expiry it goes idle and
// notifies SessionEnded then Reminder listeners.
func (t *Timer) Tick() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()
	if now.Sub(t.startedAt) < t.durationLocked(t.mode) {
		t.mu.Unlock()
		return
	}

	ended := t.endLocked(now, ReasonExpired)
	endedListeners := t.endedListenersLocked()
	reminderListeners := make([]func(Mode), len(t.reminderListeners))
	copy(reminderListeners, t.reminderListeners)
	t.mu.Unlock()

	for _, fn := range endedListeners {
		fn(ended)
	}
	for _, fn := range reminderListeners {
		fn(ended.Mode)
	}
}

// Run calls Tick on every tick interval until ctx is done.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// GetRemainingTime returns the full duration of the current mode when idle,
// otherwise what is left of the running session. Never negative.
func (t *Timer) GetRemainingTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked(t.clock.Now())
}

// GetRemainingMinutes is GetRemainingTime rounded up to whole minutes.
func (t *Timer) GetRemainingMinutes() int {
	remaining := t.GetRemainingTime()
	return int((remaining + time.Minute - 1) / time.Minute)
}

// GetElapsedTime returns the clamped elapsed time of the running session,
// or zero when idle.
func (t *Timer) GetElapsedTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0
	}
	return t.elapsedLocked(t.clock.Now())
}

func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) CurrentMode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

func (t *Timer) FocusIntervalMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focusMinutes
}

func (t *Timer) BreakIntervalMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.breakMinutes
}

// CurrentSessionStart returns the local start time of the running session.
// ok is false when idle.
func (t *Timer) CurrentSessionStart() (start time.Time, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return time.Time{}, false
	}
	return t.startedAt.Local(), true
}

// IdleFor reports how long the timer has been idle since the last stop or reset.
func (t *Timer) IdleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return 0
	}
	return max(t.clock.Now().Sub(t.anchor), 0)
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Running:      t.running,
		Mode:         t.mode,
		FocusMinutes: t.focusMinutes,
		BreakMinutes: t.breakMinutes,
		Remaining:    t.remainingLocked(t.clock.Now()),
	}
	if t.running {
		s.StartedAt = t.startedAt
	}
	return s
}

func (t *Timer) durationLocked(mode Mode) time.Duration {
	if mode == ModeBreak {
		return time.Duration(t.breakMinutes) * time.Minute
	}
	return time.Duration(t.focusMinutes) * time.Minute
}

func (t *Timer) elapsedLocked(now time.Time) time.Duration {
	elapsed := now.Sub(t.startedAt)
	if elapsed < 0 {
		return 0
	}
	return min(elapsed, t.durationLocked(t.mode))
}

func (t *Timer) remainingLocked(now time.Time) time.Duration {
	d := t.durationLocked(t.mode)
	if !t.running {
		return d
	}
	return d - t.elapsedLocked(now)
}

func (t *Timer) endLocked(now time.Time, reason Reason) SessionEnded {
	elapsed := t.elapsedLocked(now)
	ended := SessionEnded{
		Mode:      t.mode,
		StartedAt: t.startedAt,
		EndedAt:   t.startedAt.Add(elapsed),
		Elapsed:   elapsed,
		Reason:    reason,
	}

	t.running = false
	t.startedAt = time.Time{}
	t.anchor = now

	t.logger.Info().
		Str("mode", ended.Mode.String()).
		Str("reason", string(reason)).
		Dur("elapsed", elapsed).
		Msg("Session ended")
	return ended
}

func (t *Timer) endedListenersLocked() []func(SessionEnded) {
	listeners := make([]func(SessionEnded), len(t.endedListeners))
	copy(listeners, t.endedListeners)
	return listeners
}
