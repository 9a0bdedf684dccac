package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deskpet/internal/metrics"
	"deskpet/internal/settings"
	"deskpet/internal/storage"
	"deskpet/internal/timer"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder applies finished sessions to persistent state: every session is
// appended to the history and focus sessions are committed to the daily total.
type Recorder struct {
	settings *settings.Service
	sessions storage.SessionStore
	clock    timer.Clock
	logger   zerolog.Logger

	mu sync.Mutex
	// Start of the latest focus session whose commit has been attempted.
	settled time.Time
}

func NewRecorder(svc *settings.Service, sessions storage.SessionStore, clock timer.Clock, logger zerolog.Logger) *Recorder {
	if clock == nil {
		clock = timer.RealClock{}
	}
	return &Recorder{
		settings: svc,
		sessions: sessions,
		clock:    clock,
		logger:   logger.With().Str("component", "focus-ledger").Logger(),
	}
}

// Record persists ended. History and daily total are written independently;
// a failure in one does not skip the other.
func (r *Recorder) Record(ctx context.Context, ended timer.SessionEnded) error {
	metrics.SessionsEnded.WithLabelValues(ended.Mode.String(), string(ended.Reason)).Inc()

	var errs []error

	record := storage.SessionRecord{
		ID:        uuid.NewString(),
		Mode:      ended.Mode.String(),
		StartedAt: ended.StartedAt,
		EndedAt:   ended.EndedAt,
		Elapsed:   ended.Elapsed,
		Reason:    string(ended.Reason),
	}
	if err := r.sessions.Append(ctx, record); err != nil {
		metrics.StorageErrors.WithLabelValues("append_session").Inc()
		r.logger.Error().Err(err).Str("session_id", record.ID).Msg("Failed to append session history")
		errs = append(errs, fmt.Errorf("append session: %w", err))
	}

	if ended.Mode == timer.ModeFocus {
		var before, after DailyTotal
		_, err := r.settings.Update(ctx, func(s *settings.Settings) {
			before = DailyTotal{Date: s.FocusTodayDate, CompletedSeconds: s.FocusTodayCompletedSeconds}
			after = Commit(before, ended)
			s.FocusTodayDate = after.Date
			s.FocusTodayCompletedSeconds = after.CompletedSeconds
		})
		if err != nil {
			metrics.StorageErrors.WithLabelValues("commit_focus").Inc()
			r.logger.Error().Err(err).Msg("Failed to commit focus total")
			errs = append(errs, fmt.Errorf("commit focus total: %w", err))
		} else {
			credited := Credit(ended)
			metrics.FocusSecondsCommitted.Add(float64(credited))
			r.logger.Info().
				Str("date", after.Date).
				Int64("credited_seconds", credited).
				Int64("total_seconds", after.CompletedSeconds).
				Bool("rollover", before.Date != after.Date).
				Msg("Focus session committed")
		}
		r.markSettled(ended.StartedAt)
	}

	return errors.Join(errs...)
}

func (r *Recorder) markSettled(start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if start.After(r.settled) {
		r.settled = start
	}
}

// Settled reports whether the focus session that started at start has been
// through a commit attempt.
func (r *Recorder) Settled(start time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.settled.Before(start)
}

// Persisted returns the last committed daily total.
func (r *Recorder) Persisted() DailyTotal {
	s := r.settings.Current()
	return DailyTotal{Date: s.FocusTodayDate, CompletedSeconds: s.FocusTodayCompletedSeconds}
}

// TodaySeconds combines the committed total with the running session in snap.
func (r *Recorder) TodaySeconds(snap timer.Snapshot) int64 {
	return TodaySeconds(r.clock.Now(), r.Persisted(), snap)
}
