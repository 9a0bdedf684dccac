package internal

import (
	"fmt"
	"strings"
	"time"

	"deskpet/internal/ledger"
	"deskpet/internal/storage"
	"deskpet/internal/timer"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Align(lipgloss.Center)

	timerDisplayStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("69")).
				Bold(true)

	focusRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	breakRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	reminderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("214")).
			Bold(true).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	logHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	logTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	logTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

const progressWidth = 30

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// progressBar renders the fraction of the session already spent.
func progressBar(remaining, total time.Duration) string {
	if total <= 0 {
		return strings.Repeat("░", progressWidth)
	}
	done := int(float64(progressWidth) * float64(total-remaining) / float64(total))
	done = min(max(done, 0), progressWidth)
	return strings.Repeat("█", done) + strings.Repeat("░", progressWidth-done)
}

func (m *Model) mainView() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Width(60).Render("deskpet"))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.sessionView(),
		"  ",
		m.summaryView(),
	))
	sb.WriteString("\n\n")

	if m.Reminder != nil {
		sb.WriteString(reminderStyle.Render(reminderText(*m.Reminder)))
		sb.WriteString("\n")
	}
	if m.Err != nil {
		sb.WriteString(errorStyle.Render("Error: " + m.Err.Error()))
		sb.WriteString("\n")
	} else if m.Status != "" {
		sb.WriteString(inactiveStyle.Render(m.Status))
		sb.WriteString("\n")
	}

	sb.WriteString(helpStyle.Render("Focus: f | Break: b | Stop: s | Reset: r | Focus ±: +/- | Break ±: ]/[ | Auto-break: a | History: h | Quit: q"))
	return sb.String()
}

func reminderText(mode timer.Mode) string {
	if mode == timer.ModeFocus {
		return "Focus interval finished. Time for a break!"
	}
	return "Break is over. Ready to focus?"
}

func (m *Model) sessionView() string {
	s := m.Snapshot

	total := time.Duration(s.FocusMinutes) * time.Minute
	if s.Mode == timer.ModeBreak {
		total = time.Duration(s.BreakMinutes) * time.Minute
	}

	var timerStr, status string
	switch {
	case s.Running && s.Mode == timer.ModeFocus:
		timerStr = focusRunningStyle.Render(formatDuration(s.Remaining))
		status = focusRunningStyle.Render("Focusing")
	case s.Running:
		timerStr = breakRunningStyle.Render(formatDuration(s.Remaining))
		status = breakRunningStyle.Render("On break")
	default:
		timerStr = timerDisplayStyle.Render(formatDuration(s.Remaining))
		status = inactiveStyle.Render("Idle")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mode: %s\n\n", s.Mode))
	sb.WriteString(timerStr)
	sb.WriteString("\n")
	sb.WriteString(progressBar(s.Remaining, total))
	sb.WriteString(fmt.Sprintf("\n\n%s\n", status))
	if s.Running {
		sb.WriteString(logTimeStyle.Render("Started " + s.StartedAt.Local().Format("15:04:05")))
	}

	return boxStyle.Width(34).Height(9).Render(sb.String())
}

func (m *Model) summaryView() string {
	s := m.Snapshot
	auto := "off"
	if m.settings.Current().AutoStartBreak {
		auto = "on"
	}

	var sb strings.Builder
	sb.WriteString(logHeaderStyle.Render("Today"))
	sb.WriteString("\n")
	sb.WriteString(timerDisplayStyle.Render(ledger.Format(m.TodaySeconds)))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Focus: %d min\n", s.FocusMinutes))
	sb.WriteString(fmt.Sprintf("Break: %d min\n", s.BreakMinutes))
	sb.WriteString(fmt.Sprintf("Auto-break: %s\n", auto))

	return boxStyle.Width(20).Height(9).Render(sb.String())
}

func (m *Model) historyView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(60).Render("Session History"))
	sb.WriteString("\n\n")

	if len(m.History) == 0 {
		sb.WriteString(inactiveStyle.Render("No sessions recorded yet."))
	} else {
		const visible = 15
		end := min(m.HistoryScroll+visible, len(m.History))
		for _, r := range m.History[m.HistoryScroll:end] {
			sb.WriteString(formatLogEntry(r))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Scroll: Up/Down | Back: h/Esc"))
	return boxStyle.Width(60).Render(sb.String())
}

func formatLogEntry(r storage.SessionRecord) string {
	timeStr := logTimeStyle.Render(r.EndedAt.Local().Format("Jan 02 15:04"))
	tag := inactiveStyle
	if mode, ok := timer.ParseMode(r.Mode); ok {
		tag = logTagStyle
		if mode == timer.ModeBreak {
			tag = breakRunningStyle
		}
	}
	mode := tag.Render(fmt.Sprintf("[%s]", r.Mode))
	return fmt.Sprintf("  %s  %-6s %s  %s", timeStr, formatDuration(r.Elapsed), mode, inactiveStyle.Render(r.Reason))
}
