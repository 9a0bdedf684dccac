package ledger

import (
	"context"
	"time"

	"deskpet/internal/metrics"
	"deskpet/internal/storage"
	"deskpet/internal/timer"

	"github.com/rs/zerolog"
)

// Pruner removes session history older than the retention window once a day.
type Pruner struct {
	sessions      storage.SessionStore
	retentionDays int
	clock         timer.Clock
	logger        zerolog.Logger
	stopChan      chan struct{}
}

func NewPruner(sessions storage.SessionStore, retentionDays int, clock timer.Clock, logger zerolog.Logger) *Pruner {
	if clock == nil {
		clock = timer.RealClock{}
	}
	return &Pruner{
		sessions:      sessions,
		retentionDays: retentionDays,
		clock:         clock,
		logger:        logger.With().Str("component", "history-pruner").Logger(),
		stopChan:      make(chan struct{}),
	}
}

// Start prunes once immediately and then after every local midnight.
// A zero retention disables pruning.
func (p *Pruner) Start() {
	if p.retentionDays == 0 {
		p.logger.Info().Msg("History retention disabled")
		return
	}
	go p.run()
	p.logger.Info().Int("retention_days", p.retentionDays).Msg("History pruner started")
}

// Stop stops the pruner. Safe to call when Start was a no-op.
func (p *Pruner) Stop() {
	select {
	case <-p.stopChan:
	default:
		close(p.stopChan)
	}
}

func (p *Pruner) run() {
	for {
		_, _ = p.PruneOnce(context.Background())

		next := p.nextRun()
		wait := next.Sub(p.clock.Now())
		p.logger.Debug().Time("next_run", next).Dur("wait_duration", wait).Msg("Scheduled next history prune")

		select {
		case <-time.After(wait):
		case <-p.stopChan:
			return
		}
	}
}

// nextRun returns the next local midnight.
func (p *Pruner) nextRun() time.Time {
	return Midnight(p.clock.Now()).AddDate(0, 0, 1)
}

// Cutoff returns the instant before which records are pruned.
func (p *Pruner) Cutoff() time.Time {
	return Midnight(p.clock.Now()).AddDate(0, 0, -p.retentionDays)
}

// PruneOnce deletes records that ended before Cutoff.
func (p *Pruner) PruneOnce(ctx context.Context) (int, error) {
	if p.retentionDays == 0 {
		return 0, nil
	}
	cutoff := p.Cutoff()
	deleted, err := p.sessions.DeleteBefore(ctx, cutoff)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("prune_history").Inc()
		p.logger.Error().Err(err).Msg("Failed to prune session history")
		return 0, err
	}

	metrics.HistoryPruned.Add(float64(deleted))
	p.logger.Info().
		Int("sessions_deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Session history pruned")
	return deleted, nil
}
