package internal

import (
	"context"
	"fmt"
	"time"

	"deskpet/internal/ledger"
	"deskpet/internal/metrics"
	"deskpet/internal/settings"
	"deskpet/internal/storage"
	"deskpet/internal/timer"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// MsgTick refreshes the display. It is sent by the host's UI ticker and is
// unrelated to the engine's own expiry tick.
type MsgTick struct{}

// MsgSessionEnded is delivered after a session has been recorded.
type MsgSessionEnded struct {
	Ended timer.SessionEnded
	Err   error
}

// MsgReminder is delivered when an interval expires.
type MsgReminder struct {
	Mode timer.Mode
}

const (
	historyLimit  = 50
	recordTimeout = 5 * time.Second
	eventBuffer   = 16
)

// Deps are the collaborators the host model drives.
type Deps struct {
	Timer    *timer.Timer
	Recorder *ledger.Recorder
	Settings *settings.Service
	Store    storage.Store
	Logger   zerolog.Logger
}

type Model struct {
	timer    *timer.Timer
	recorder *ledger.Recorder
	settings *settings.Service
	store    storage.Store
	logger   zerolog.Logger

	// Engine listeners run on whichever goroutine ended the session; they
	// hand results to the UI loop through this channel.
	events chan tea.Msg

	Snapshot     timer.Snapshot
	TodaySeconds int64
	// Start of a focus session that has stopped running but whose commit
	// has not landed yet; TodaySeconds is held while set.
	pendingCommit time.Time
	Status       string
	Err          error
	Reminder     *timer.Mode

	// History viewer state
	ShowHistory   bool
	HistoryScroll int
	History       []storage.SessionRecord

	Width  int
	Height int
}

func NewModel(deps Deps) *Model {
	m := &Model{
		timer:    deps.Timer,
		recorder: deps.Recorder,
		settings: deps.Settings,
		store:    deps.Store,
		logger:   deps.Logger.With().Str("component", "host").Logger(),
		events:   make(chan tea.Msg, eventBuffer),
	}

	m.timer.OnSessionEnded(m.handleSessionEnded)
	m.timer.OnReminder(m.handleReminder)
	m.refresh()
	return m
}

func (m *Model) handleSessionEnded(ended timer.SessionEnded) {
	metrics.SessionRunning.WithLabelValues(ended.Mode.String()).Set(0)

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	err := m.recorder.Record(ctx, ended)

	m.notify(MsgSessionEnded{Ended: ended, Err: err})
}

func (m *Model) handleReminder(mode timer.Mode) {
	metrics.RemindersTriggered.WithLabelValues(mode.String()).Inc()
	m.logger.Info().Str("mode", mode.String()).Msg("Interval expired")

	if mode == timer.ModeFocus && m.settings.Current().AutoStartBreak {
		m.timer.StartBreak()
		metrics.SessionRunning.WithLabelValues(timer.ModeBreak.String()).Set(1)
	}

	m.notify(MsgReminder{Mode: mode})
}

// notify never blocks; a full buffer drops the message and the next
// MsgTick refresh still picks up the new state.
func (m *Model) notify(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		m.logger.Warn().Msg("UI event buffer full, dropping notification")
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MsgTick:
		m.refresh()
		return m, nil
	case MsgSessionEnded:
		m.Err = msg.Err
		m.Status = fmt.Sprintf("%s session ended (%s) after %s",
			msg.Ended.Mode, msg.Ended.Reason, formatDuration(msg.Ended.Elapsed))
		m.refresh()
		return m, m.waitForEvent()
	case MsgReminder:
		mode := msg.Mode
		m.Reminder = &mode
		m.refresh()
		return m, m.waitForEvent()
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m *Model) View() string {
	if m.ShowHistory {
		return m.historyView()
	}
	return m.mainView()
}

func (m *Model) refresh() {
	prev := m.Snapshot
	m.Snapshot = m.timer.Snapshot()

	focusing := m.Snapshot.Running && m.Snapshot.Mode == timer.ModeFocus
	if prev.Running && prev.Mode == timer.ModeFocus && !focusing {
		m.pendingCommit = prev.StartedAt
	}
	if !m.pendingCommit.IsZero() && (focusing || m.recorder.Settled(m.pendingCommit)) {
		m.pendingCommit = time.Time{}
	}
	if !m.pendingCommit.IsZero() {
		return
	}
	m.TodaySeconds = m.recorder.TodaySeconds(m.Snapshot)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowHistory {
		return m.handleHistoryInput(msg)
	}

	// Any key acknowledges a pending reminder.
	m.Reminder = nil

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "f":
		m.start(timer.ModeFocus)
	case "b":
		m.start(timer.ModeBreak)
	case "s":
		m.timer.Stop()
	case "r":
		if m.timer.IsRunning() {
			m.timer.Reset()
			m.Status = "Session restarted"
		}
	case "+", "=":
		m.adjustMinutes(timer.ModeFocus, 1)
	case "-":
		m.adjustMinutes(timer.ModeFocus, -1)
	case "]":
		m.adjustMinutes(timer.ModeBreak, 1)
	case "[":
		m.adjustMinutes(timer.ModeBreak, -1)
	case "a":
		s, err := m.settings.Update(context.Background(), func(s *settings.Settings) {
			s.AutoStartBreak = !s.AutoStartBreak
		})
		m.Err = err
		if err == nil {
			m.Status = fmt.Sprintf("Auto-start break: %t", s.AutoStartBreak)
		}
	case "h":
		m.openHistory()
	}
	m.refresh()
	return m, nil
}

// start ignores the request while a session is running; stop first.
func (m *Model) start(mode timer.Mode) {
	if m.timer.IsRunning() {
		m.Status = "A session is already running"
		return
	}
	if mode == timer.ModeFocus {
		m.timer.StartFocus()
	} else {
		m.timer.StartBreak()
	}
	metrics.SessionRunning.WithLabelValues(mode.String()).Set(1)
	m.Status = fmt.Sprintf("%s started", mode)
}

// adjustMinutes changes a duration by delta. Durations are locked while a
// session runs.
func (m *Model) adjustMinutes(mode timer.Mode, delta int) {
	if m.timer.IsRunning() {
		m.Status = "Stop the session to change durations"
		return
	}

	var minutes int
	if mode == timer.ModeFocus {
		m.timer.SetInterval(m.timer.FocusIntervalMinutes() + delta)
		minutes = m.timer.FocusIntervalMinutes()
	} else {
		m.timer.SetBreakInterval(m.timer.BreakIntervalMinutes() + delta)
		minutes = m.timer.BreakIntervalMinutes()
	}

	_, err := m.settings.Update(context.Background(), func(s *settings.Settings) {
		if mode == timer.ModeFocus {
			s.FocusMinutes = minutes
		} else {
			s.BreakMinutes = minutes
		}
	})
	m.Err = err
	m.Status = fmt.Sprintf("%s duration: %d min", mode, minutes)
}

func (m *Model) openHistory() {
	history, err := m.store.Sessions().List(context.Background(), historyLimit)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to load session history")
		m.Err = err
		history = nil
	}
	m.History = history
	m.ShowHistory = true
	m.HistoryScroll = 0
}

func (m *Model) handleHistoryInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc", "h":
		m.ShowHistory = false
		m.History = nil
	case "up", "k":
		if m.HistoryScroll > 0 {
			m.HistoryScroll--
		}
	case "down", "j":
		maxScroll := max(len(m.History)-1, 0)
		if m.HistoryScroll < maxScroll {
			m.HistoryScroll++
		}
	}
	return m, nil
}

// Close ends a running session so its partial focus time is committed,
// then closes storage.
func (m *Model) Close() error {
	if m.timer.IsRunning() {
		m.logger.Info().Msg("Stopping running session on exit")
		m.timer.Stop()
	}
	return m.store.Close()
}
