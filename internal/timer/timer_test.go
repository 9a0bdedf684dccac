package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var base = time.Date(2024, 6, 12, 9, 0, 0, 0, time.Local)

func newTestTimer(t *testing.T, focus, brk int) (*Timer, *ManualClock) {
	t.Helper()
	clock := NewManualClock(base)
	tm := New(Config{FocusMinutes: focus, BreakMinutes: brk, Clock: clock}, zerolog.Nop())
	return tm, clock
}

type recorder struct {
	mu     sync.Mutex
	events []string
	ended  []SessionEnded
}

func (r *recorder) attach(tm *Timer) {
	tm.OnSessionEnded(func(e SessionEnded) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, "ended:"+e.Mode.String())
		r.ended = append(r.ended, e)
	})
	tm.OnReminder(func(m Mode) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, "reminder:"+m.String())
	})
}

func TestNewDefaultsAndClamp(t *testing.T) {
	tm := New(Config{Clock: NewManualClock(base)}, zerolog.Nop())
	if got := tm.FocusIntervalMinutes(); got != DefaultFocusMinutes {
		t.Errorf("focus = %d, want %d", got, DefaultFocusMinutes)
	}
	if got := tm.BreakIntervalMinutes(); got != DefaultBreakMinutes {
		t.Errorf("break = %d, want %d", got, DefaultBreakMinutes)
	}

	tm = New(Config{FocusMinutes: -3, BreakMinutes: 999, Clock: NewManualClock(base)}, zerolog.Nop())
	if got := tm.FocusIntervalMinutes(); got != 1 {
		t.Errorf("focus = %d, want 1", got)
	}
	if got := tm.BreakIntervalMinutes(); got != 180 {
		t.Errorf("break = %d, want 180", got)
	}
}

func TestRemainingWhileRunning(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)

	if got := tm.GetRemainingTime(); got != 25*time.Minute {
		t.Fatalf("idle remaining = %v, want 25m", got)
	}

	tm.StartFocus()
	clock.Advance(10*time.Minute + 30*time.Second)

	if got := tm.GetRemainingTime(); got != 14*time.Minute+30*time.Second {
		t.Errorf("remaining = %v, want 14m30s", got)
	}
	if got := tm.GetRemainingMinutes(); got != 15 {
		t.Errorf("remaining minutes = %d, want 15", got)
	}
	if got := tm.GetElapsedTime(); got != 10*time.Minute+30*time.Second {
		t.Errorf("elapsed = %v, want 10m30s", got)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	tm, clock := newTestTimer(t, 1, 1)
	tm.StartFocus()
	clock.Advance(3 * time.Hour)

	if got := tm.GetRemainingTime(); got != 0 {
		t.Errorf("remaining = %v, want 0", got)
	}
	if got := tm.GetRemainingMinutes(); got != 0 {
		t.Errorf("remaining minutes = %d, want 0", got)
	}
	if got := tm.GetElapsedTime(); got != time.Minute {
		t.Errorf("elapsed = %v, want 1m", got)
	}
}

func TestClockBackwardsDoesNotGoNegative(t *testing.T) {
	tm, clock := newTestTimer(t, 10, 5)
	tm.StartFocus()
	clock.Set(base.Add(-time.Minute))

	if got := tm.GetRemainingTime(); got != 10*time.Minute {
		t.Errorf("remaining = %v, want 10m", got)
	}
	if got := tm.GetElapsedTime(); got != 0 {
		t.Errorf("elapsed = %v, want 0", got)
	}
}

func TestExpiryEmitsEndedThenReminder(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	rec := &recorder{}
	rec.attach(tm)

	tm.StartFocus()
	clock.Advance(25*time.Minute + 10*time.Second)
	tm.Tick()

	if tm.IsRunning() {
		t.Fatal("timer still running after expiry")
	}
	if len(rec.events) != 2 || rec.events[0] != "ended:focus" || rec.events[1] != "reminder:focus" {
		t.Fatalf("events = %v", rec.events)
	}

	e := rec.ended[0]
	if e.Elapsed != 25*time.Minute {
		t.Errorf("elapsed = %v, want 25m", e.Elapsed)
	}
	if !e.StartedAt.Equal(base) {
		t.Errorf("started at = %v, want %v", e.StartedAt, base)
	}
	if !e.EndedAt.Equal(base.Add(25 * time.Minute)) {
		t.Errorf("ended at = %v, want start+25m", e.EndedAt)
	}
	if e.Reason != ReasonExpired {
		t.Errorf("reason = %q, want %q", e.Reason, ReasonExpired)
	}

	// Exactly once.
	clock.Advance(time.Minute)
	tm.Tick()
	if len(rec.events) != 2 {
		t.Errorf("events after second tick = %v", rec.events)
	}
}

func TestTickBeforeExpiryDoesNothing(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	rec := &recorder{}
	rec.attach(tm)

	tm.StartFocus()
	clock.Advance(25*time.Minute - time.Second)
	tm.Tick()

	if !tm.IsRunning() {
		t.Fatal("timer stopped early")
	}
	if len(rec.events) != 0 {
		t.Errorf("events = %v, want none", rec.events)
	}
}

func TestLongSuspendClampsElapsed(t *testing.T) {
	tm, clock := newTestTimer(t, 5, 5)
	rec := &recorder{}
	rec.attach(tm)

	tm.StartBreak()
	clock.Advance(9 * time.Hour)
	tm.Tick()

	if len(rec.ended) != 1 {
		t.Fatalf("ended = %d, want 1", len(rec.ended))
	}
	if rec.ended[0].Elapsed != 5*time.Minute {
		t.Errorf("elapsed = %v, want 5m", rec.ended[0].Elapsed)
	}
	if rec.ended[0].Mode != ModeBreak {
		t.Errorf("mode = %v, want break", rec.ended[0].Mode)
	}
}

func TestStopWhileRunning(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	rec := &recorder{}
	rec.attach(tm)

	tm.StartFocus()
	clock.Advance(7 * time.Minute)
	tm.Stop()

	if tm.IsRunning() {
		t.Fatal("still running")
	}
	if len(rec.events) != 1 || rec.events[0] != "ended:focus" {
		t.Fatalf("events = %v, want only ended:focus", rec.events)
	}
	if rec.ended[0].Elapsed != 7*time.Minute || rec.ended[0].Reason != ReasonStopped {
		t.Errorf("ended = %+v", rec.ended[0])
	}
	if _, ok := tm.CurrentSessionStart(); ok {
		t.Error("session start reported while idle")
	}
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	rec := &recorder{}
	rec.attach(tm)

	clock.Advance(time.Hour)
	if got := tm.IdleFor(); got != time.Hour {
		t.Errorf("idle for = %v, want 1h", got)
	}

	tm.Stop()

	if tm.IsRunning() {
		t.Error("running after idle stop")
	}
	if len(rec.events) != 0 {
		t.Errorf("events = %v, want none", rec.events)
	}
	if got := tm.IdleFor(); got != 0 {
		t.Errorf("idle for after stop = %v, want 0", got)
	}
}

func TestSetIntervalClamps(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, 1},
		{"negative", -10, 1},
		{"in range", 30, 30},
		{"upper bound", 180, 180},
		{"over", 500, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, _ := newTestTimer(t, 25, 5)
			tm.SetInterval(tt.in)
			tm.SetBreakInterval(tt.in)
			if got := tm.FocusIntervalMinutes(); got != tt.want {
				t.Errorf("focus = %d, want %d", got, tt.want)
			}
			if got := tm.BreakIntervalMinutes(); got != tt.want {
				t.Errorf("break = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSetIntervalRearmsMatchingMode(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	tm.StartFocus()
	clock.Advance(10 * time.Minute)

	tm.SetInterval(30)
	if got := tm.GetRemainingTime(); got != 30*time.Minute {
		t.Errorf("remaining = %v, want 30m", got)
	}
	start, ok := tm.CurrentSessionStart()
	if !ok || !start.Equal(base.Add(10*time.Minute)) {
		t.Errorf("start = %v ok=%v, want re-armed", start, ok)
	}
}

func TestSetIntervalLeavesOtherModeAlone(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	tm.StartBreak()
	clock.Advance(2 * time.Minute)

	tm.SetInterval(50)
	if got := tm.GetRemainingTime(); got != 3*time.Minute {
		t.Errorf("break remaining = %v, want 3m", got)
	}

	tm.SetBreakInterval(10)
	if got := tm.GetRemainingTime(); got != 10*time.Minute {
		t.Errorf("break remaining after re-arm = %v, want 10m", got)
	}
}

func TestStartSameModeRearms(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	rec := &recorder{}
	rec.attach(tm)

	tm.StartFocus()
	clock.Advance(5 * time.Minute)
	tm.StartFocus()

	if got := tm.GetRemainingTime(); got != 25*time.Minute {
		t.Errorf("remaining = %v, want 25m", got)
	}
	if len(rec.events) != 0 {
		t.Errorf("events = %v, want none", rec.events)
	}
}

func TestSwitchModeEmitsNothingByDefault(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	rec := &recorder{}
	rec.attach(tm)

	tm.StartFocus()
	clock.Advance(3 * time.Minute)
	tm.StartBreak()

	if len(rec.events) != 0 {
		t.Errorf("events = %v, want none", rec.events)
	}
	if tm.CurrentMode() != ModeBreak || !tm.IsRunning() {
		t.Errorf("mode = %v running = %v", tm.CurrentMode(), tm.IsRunning())
	}
}

func TestSwitchModeWithCloseOnSwitch(t *testing.T) {
	clock := NewManualClock(base)
	tm := New(Config{FocusMinutes: 25, BreakMinutes: 5, CloseOnSwitch: true, Clock: clock}, zerolog.Nop())
	rec := &recorder{}
	rec.attach(tm)

	tm.StartFocus()
	clock.Advance(3 * time.Minute)
	tm.StartBreak()

	if len(rec.ended) != 1 {
		t.Fatalf("ended = %d, want 1", len(rec.ended))
	}
	e := rec.ended[0]
	if e.Mode != ModeFocus || e.Reason != ReasonSwitched || e.Elapsed != 3*time.Minute {
		t.Errorf("ended = %+v", e)
	}
	if got := tm.GetRemainingTime(); got != 5*time.Minute {
		t.Errorf("break remaining = %v, want 5m", got)
	}
}

func TestResetRearmsRunningAndAnchorsIdle(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)

	clock.Advance(time.Hour)
	tm.Reset()
	if tm.IsRunning() {
		t.Fatal("reset started an idle timer")
	}
	if got := tm.IdleFor(); got != 0 {
		t.Errorf("idle for after reset = %v, want 0", got)
	}

	tm.StartFocus()
	clock.Advance(20 * time.Minute)
	tm.Reset()
	if got := tm.GetRemainingTime(); got != 25*time.Minute {
		t.Errorf("remaining = %v, want 25m", got)
	}
}

func TestListenerMayReenter(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	var reminded []Mode
	tm.OnSessionEnded(func(e SessionEnded) {
		if e.Mode == ModeFocus {
			tm.StartBreak()
		}
	})
	tm.OnReminder(func(m Mode) {
		reminded = append(reminded, m)
		_ = tm.GetRemainingTime()
	})

	tm.StartFocus()
	clock.Advance(26 * time.Minute)

	done := make(chan struct{})
	go func() {
		tm.Tick()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Tick deadlocked with re-entrant listener")
	}

	if !tm.IsRunning() || tm.CurrentMode() != ModeBreak {
		t.Errorf("running = %v mode = %v, want running break", tm.IsRunning(), tm.CurrentMode())
	}
	if len(reminded) != 1 || reminded[0] != ModeFocus {
		t.Errorf("reminded = %v", reminded)
	}
}

func TestSnapshot(t *testing.T) {
	tm, clock := newTestTimer(t, 25, 5)
	s := tm.Snapshot()
	if s.Running || !s.StartedAt.IsZero() || s.Remaining != 25*time.Minute {
		t.Errorf("idle snapshot = %+v", s)
	}

	tm.StartBreak()
	clock.Advance(time.Minute)
	s = tm.Snapshot()
	if !s.Running || s.Mode != ModeBreak || !s.StartedAt.Equal(base) || s.Remaining != 4*time.Minute {
		t.Errorf("running snapshot = %+v", s)
	}
	if s.FocusMinutes != 25 || s.BreakMinutes != 5 {
		t.Errorf("minutes = %d/%d", s.FocusMinutes, s.BreakMinutes)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	clock := NewManualClock(base)
	tm := New(Config{FocusMinutes: 1, TickInterval: 5 * time.Millisecond, Clock: clock}, zerolog.Nop())

	ended := make(chan SessionEnded, 1)
	tm.OnSessionEnded(func(e SessionEnded) { ended <- e })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tm.Run(ctx)
		close(done)
	}()

	tm.StartFocus()
	clock.Advance(2 * time.Minute)

	select {
	case e := <-ended:
		if e.Elapsed != time.Minute {
			t.Errorf("elapsed = %v, want 1m", e.Elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run never detected expiry")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tm, clock := newTestTimer(t, 1, 1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				switch (i + j) % 5 {
				case 0:
					tm.StartFocus()
				case 1:
					tm.StartBreak()
				case 2:
					tm.Stop()
				case 3:
					clock.Advance(time.Second)
					tm.Tick()
				default:
					if r := tm.GetRemainingTime(); r < 0 {
						t.Errorf("negative remaining %v", r)
					}
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestModeString(t *testing.T) {
	if ModeFocus.String() != "focus" || ModeBreak.String() != "break" {
		t.Errorf("got %q %q", ModeFocus, ModeBreak)
	}
	if m, ok := ParseMode("break"); !ok || m != ModeBreak {
		t.Errorf("ParseMode(break) = %v %v", m, ok)
	}
	if _, ok := ParseMode("nap"); ok {
		t.Error("ParseMode accepted unknown mode")
	}
}
