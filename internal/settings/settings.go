// Package settings maps the persisted key/value settings onto typed values.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"deskpet/internal/storage"
	"deskpet/internal/timer"

	"github.com/rs/zerolog"
)

const (
	KeyFocusMinutes        = "focus_minutes"
	KeyBreakMinutes        = "break_minutes"
	KeyFocusTodayDate      = "focus_today_date"
	KeyFocusTodayCompleted = "focus_today_completed_seconds"
	KeyAutoStartBreak      = "auto_start_break"
)

// Settings is the user-editable state that outlives the process.
type Settings struct {
	FocusMinutes int
	BreakMinutes int
	// FocusTodayDate is the local date (2006-01-02) FocusTodayCompletedSeconds belongs to.
	FocusTodayDate             string
	FocusTodayCompletedSeconds int64
	AutoStartBreak             bool
}

// Defaults returns the settings used for missing keys.
func Defaults() Settings {
	return Settings{
		FocusMinutes: timer.DefaultFocusMinutes,
		BreakMinutes: timer.DefaultBreakMinutes,
	}
}

// Validate clamps values to their allowed ranges.
func (s *Settings) Validate() {
	s.FocusMinutes = timer.ClampMinutes(s.FocusMinutes)
	s.BreakMinutes = timer.ClampMinutes(s.BreakMinutes)
	if s.FocusTodayCompletedSeconds < 0 {
		s.FocusTodayCompletedSeconds = 0
	}
}

// FromMap decodes stored values over defaults. Unparsable entries keep the default.
func FromMap(values map[string]string, defaults Settings) Settings {
	s := defaults
	if v, err := strconv.Atoi(values[KeyFocusMinutes]); err == nil {
		s.FocusMinutes = v
	}
	if v, err := strconv.Atoi(values[KeyBreakMinutes]); err == nil {
		s.BreakMinutes = v
	}
	if v, ok := values[KeyFocusTodayDate]; ok {
		s.FocusTodayDate = v
	}
	if v, err := strconv.ParseInt(values[KeyFocusTodayCompleted], 10, 64); err == nil {
		s.FocusTodayCompletedSeconds = v
	}
	if v, err := strconv.ParseBool(values[KeyAutoStartBreak]); err == nil {
		s.AutoStartBreak = v
	}
	s.Validate()
	return s
}

// ToMap encodes s for storage.
func (s Settings) ToMap() map[string]string {
	return map[string]string{
		KeyFocusMinutes:        strconv.Itoa(s.FocusMinutes),
		KeyBreakMinutes:        strconv.Itoa(s.BreakMinutes),
		KeyFocusTodayDate:      s.FocusTodayDate,
		KeyFocusTodayCompleted: strconv.FormatInt(s.FocusTodayCompletedSeconds, 10),
		KeyAutoStartBreak:      strconv.FormatBool(s.AutoStartBreak),
	}
}

// Service caches the current settings and writes changes through to the store.
type Service struct {
	mu       sync.Mutex
	store    storage.SettingsStore
	defaults Settings
	current  Settings
	logger   zerolog.Logger
}

func NewService(store storage.SettingsStore, defaults Settings, logger zerolog.Logger) *Service {
	defaults.Validate()
	return &Service{
		store:    store,
		defaults: defaults,
		current:  defaults,
		logger:   logger.With().Str("component", "settings").Logger(),
	}
}

// Load reads the store and replaces the cached settings.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	values, err := s.store.Load(ctx)
	if err != nil {
		return s.Current(), fmt.Errorf("load settings: %w", err)
	}

	loaded := FromMap(values, s.defaults)

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	s.logger.Debug().
		Int("focus_minutes", loaded.FocusMinutes).
		Int("break_minutes", loaded.BreakMinutes).
		Str("focus_today_date", loaded.FocusTodayDate).
		Int64("focus_today_seconds", loaded.FocusTodayCompletedSeconds).
		Msg("Settings loaded")
	return loaded, nil
}

func (s *Service) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies fn to a copy of the current settings, validates and saves
// it. The cache is only replaced when the save succeeds.
func (s *Service) Update(ctx context.Context, fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	next.Validate()

	if err := s.store.Save(ctx, next.ToMap()); err != nil {
		return s.current, fmt.Errorf("save settings: %w", err)
	}
	s.current = next
	return next, nil
}
