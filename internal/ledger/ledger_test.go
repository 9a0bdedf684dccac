package ledger

import (
	"testing"
	"time"

	"deskpet/internal/timer"
)

var day = time.Date(2024, 6, 12, 0, 0, 0, 0, time.Local)

func at(h, m, s int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

func TestTodaySeconds(t *testing.T) {
	now := at(14, 0, 0)
	today := DailyTotal{Date: "2024-06-12", CompletedSeconds: 3600}
	stale := DailyTotal{Date: "2024-06-11", CompletedSeconds: 5000}

	tests := []struct {
		name      string
		persisted DailyTotal
		snap      timer.Snapshot
		want      int64
	}{
		{"idle today", today, timer.Snapshot{}, 3600},
		{"idle stale", stale, timer.Snapshot{}, 0},
		{"live focus", today, timer.Snapshot{Running: true, Mode: timer.ModeFocus, StartedAt: now.Add(-90 * time.Second)}, 3690},
		{"live focus stale", stale, timer.Snapshot{Running: true, Mode: timer.ModeFocus, StartedAt: now.Add(-10 * time.Second)}, 10},
		{"live break ignored", today, timer.Snapshot{Running: true, Mode: timer.ModeBreak, StartedAt: now.Add(-time.Minute)}, 3600},
		{"sub-second floored", DailyTotal{}, timer.Snapshot{Running: true, Mode: timer.ModeFocus, StartedAt: now.Add(-1500 * time.Millisecond)}, 1},
		{"start in future", today, timer.Snapshot{Running: true, Mode: timer.ModeFocus, StartedAt: now.Add(time.Minute)}, 3600},
		{"negative persisted", DailyTotal{Date: "2024-06-12", CompletedSeconds: -50}, timer.Snapshot{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TodaySeconds(now, tt.persisted, tt.snap); got != tt.want {
				t.Errorf("TodaySeconds = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTodaySecondsClampsAtMidnight(t *testing.T) {
	now := at(0, 10, 0)
	snap := timer.Snapshot{Running: true, Mode: timer.ModeFocus, StartedAt: now.Add(-40 * time.Minute)}
	persisted := DailyTotal{Date: "2024-06-11", CompletedSeconds: 7200}

	if got := TodaySeconds(now, persisted, snap); got != 600 {
		t.Errorf("TodaySeconds = %d, want 600", got)
	}
}

func TestFormat(t *testing.T) {
	tests := map[int64]string{
		0:          "00:00",
		59:         "00:00",
		60:         "00:01",
		3600 + 90:  "01:01",
		36000:      "10:00",
		100 * 3600: "100:00",
		-5:         "00:00",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Errorf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatWithLiveSession(t *testing.T) {
	now := at(12, 0, 0)
	snap := timer.Snapshot{Running: true, Mode: timer.ModeFocus, StartedAt: now.Add(-90 * time.Second)}
	got := Format(TodaySeconds(now, DailyTotal{Date: "2024-06-12", CompletedSeconds: 3600}, snap))
	if got != "01:01" {
		t.Errorf("got %q, want 01:01", got)
	}
}

func focusEnded(start time.Time, elapsed time.Duration) timer.SessionEnded {
	return timer.SessionEnded{
		Mode:      timer.ModeFocus,
		StartedAt: start,
		EndedAt:   start.Add(elapsed),
		Elapsed:   elapsed,
		Reason:    timer.ReasonExpired,
	}
}

func TestCommitAddsSameDay(t *testing.T) {
	got := Commit(DailyTotal{Date: "2024-06-12", CompletedSeconds: 600}, focusEnded(at(9, 0, 0), 25*time.Minute))
	want := DailyTotal{Date: "2024-06-12", CompletedSeconds: 600 + 1500}
	if got != want {
		t.Errorf("Commit = %+v, want %+v", got, want)
	}
}

func TestCommitResetsOtherDay(t *testing.T) {
	got := Commit(DailyTotal{Date: "2024-06-11", CompletedSeconds: 9999}, focusEnded(at(9, 0, 0), 25*time.Minute))
	want := DailyTotal{Date: "2024-06-12", CompletedSeconds: 1500}
	if got != want {
		t.Errorf("Commit = %+v, want %+v", got, want)
	}
}

func TestCommitCreditsStartDate(t *testing.T) {
	// 23:50 -> 00:15 the next day.
	ended := focusEnded(at(0, 0, 0).Add(-10*time.Minute), 25*time.Minute)

	got := Commit(DailyTotal{Date: "2024-06-11", CompletedSeconds: 3600}, ended)
	want := DailyTotal{Date: "2024-06-11", CompletedSeconds: 3600 + 1500}
	if got != want {
		t.Errorf("Commit = %+v, want %+v", got, want)
	}

	got = Commit(DailyTotal{Date: "2024-06-10", CompletedSeconds: 3600}, ended)
	want = DailyTotal{Date: "2024-06-11", CompletedSeconds: 1500}
	if got != want {
		t.Errorf("Commit rollover = %+v, want %+v", got, want)
	}
}

func TestCommitIgnoresBreak(t *testing.T) {
	persisted := DailyTotal{Date: "2024-06-12", CompletedSeconds: 42}
	ended := focusEnded(at(9, 0, 0), 5*time.Minute)
	ended.Mode = timer.ModeBreak
	if got := Commit(persisted, ended); got != persisted {
		t.Errorf("Commit = %+v, want unchanged", got)
	}
}
