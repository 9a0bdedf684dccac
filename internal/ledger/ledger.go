// Package ledger computes and commits the day-scoped focus total.
package ledger

import (
	"fmt"
	"time"

	"deskpet/internal/timer"
)

// DateLayout is the persisted form of a local calendar date.
const DateLayout = "2006-01-02"

// DailyTotal is the closed-out focus time for one local date. It never
// includes a session that is still running.
type DailyTotal struct {
	Date             string
	CompletedSeconds int64
}

// Midnight returns the start of t's local day.
func Midnight(t time.Time) time.Time {
	t = t.Local()
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TodaySeconds returns today's focus seconds: the persisted total if it
// belongs to today, plus the part of a running focus session after midnight.
func TodaySeconds(now time.Time, persisted DailyTotal, snap timer.Snapshot) int64 {
	todayStart := Midnight(now)

	var total int64
	if persisted.Date == todayStart.Format(DateLayout) {
		total = persisted.CompletedSeconds
	}

	if snap.Running && snap.Mode == timer.ModeFocus {
		start := snap.StartedAt
		if start.Before(todayStart) {
			start = todayStart
		}
		if ongoing := int64(now.Sub(start) / time.Second); ongoing > 0 {
			total += ongoing
		}
	}

	return max(total, 0)
}

// Format renders seconds as zero-padded HH:MM.
func Format(seconds int64) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/3600, (seconds/60)%60)
}

// Commit folds a finished focus session into persisted. The full elapsed
// time is credited to the local date the session started on. A persisted
// total for another date is replaced, not added to. Break sessions leave
// persisted unchanged.
func Commit(persisted DailyTotal, ended timer.SessionEnded) DailyTotal {
	if ended.Mode != timer.ModeFocus {
		return persisted
	}

	credit := Credit(ended)
	day := ended.StartedAt.Local().Format(DateLayout)
	if persisted.Date != day {
		return DailyTotal{Date: day, CompletedSeconds: credit}
	}
	return DailyTotal{Date: day, CompletedSeconds: persisted.CompletedSeconds + credit}
}

// Credit returns the whole seconds of ended's elapsed time.
func Credit(ended timer.SessionEnded) int64 {
	return max(int64(ended.Elapsed/time.Second), 0)
}
