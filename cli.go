package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"deskpet/internal/config"
	"deskpet/internal/ledger"
	"deskpet/internal/settings"
	"deskpet/internal/storage"
	"deskpet/internal/timer"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var historyLimit int

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Print today's committed focus time",
	Args:  cobra.NoArgs,
	RunE:  runToday,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent focus and break sessions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print one recorded session",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete session history older than history.retention_days",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of sessions to show")

	rootCmd.AddCommand(todayCmd, historyCmd, showCmd, pruneCmd)
}

// openForCLI loads config and storage with a stderr logger.
func openForCLI() (*config.Config, storage.Store, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	logger := setupLogger(cfg.Logging, os.Stderr)

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("failed to open storage: %w", err)
	}
	return cfg, store, logger, nil
}

func runToday(cmd *cobra.Command, args []string) error {
	cfg, store, logger, err := openForCLI()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := settings.NewService(store.Settings(), settings.Settings{
		FocusMinutes: cfg.Pomodoro.FocusMinutes,
		BreakMinutes: cfg.Pomodoro.BreakMinutes,
	}, logger)
	s, err := svc.Load(cmd.Context())
	if err != nil {
		return err
	}

	persisted := ledger.DailyTotal{Date: s.FocusTodayDate, CompletedSeconds: s.FocusTodayCompletedSeconds}
	total := ledger.TodaySeconds(time.Now(), persisted, timer.Snapshot{})

	header := color.New(color.FgCyan, color.Bold)
	value := color.New(color.FgGreen, color.Bold)

	header.Fprint(cmd.OutOrStdout(), "Today's focus: ")
	value.Fprintln(cmd.OutOrStdout(), ledger.Format(total))
	fmt.Fprintf(cmd.OutOrStdout(), "Focus %d min / Break %d min\n", s.FocusMinutes, s.BreakMinutes)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	_, store, _, err := openForCLI()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Sessions().List(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No sessions recorded yet.")
		return nil
	}

	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	header.Fprintf(out, "%-17s %-6s %-9s %-8s %s\n", "ENDED", "MODE", "ELAPSED", "REASON", "ID")
	for _, r := range records {
		fmt.Fprintf(out, "%-17s ", r.EndedAt.Local().Format("2006-01-02 15:04"))
		modeColor(r.Mode).Fprintf(out, "%-6s ", r.Mode)
		fmt.Fprintf(out, "%-9s ", r.Elapsed.Round(time.Second))
		dim.Fprintf(out, "%-8s %s\n", r.Reason, r.ID)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	_, store, _, err := openForCLI()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	r, err := store.Sessions().Get(cmd.Context(), args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("session %q not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	out := cmd.OutOrStdout()
	label := color.New(color.FgCyan)
	label.Fprint(out, "Mode:    ")
	modeColor(r.Mode).Fprintln(out, r.Mode)
	label.Fprint(out, "Started: ")
	fmt.Fprintln(out, r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	label.Fprint(out, "Ended:   ")
	fmt.Fprintln(out, r.EndedAt.Local().Format("2006-01-02 15:04:05"))
	label.Fprint(out, "Elapsed: ")
	fmt.Fprintln(out, r.Elapsed.Round(time.Second))
	label.Fprint(out, "Reason:  ")
	fmt.Fprintln(out, r.Reason)
	return nil
}

// modeColor picks the color for a stored mode name; unknown names are dimmed.
func modeColor(name string) *color.Color {
	mode, ok := timer.ParseMode(name)
	switch {
	case !ok:
		return color.New(color.FgHiBlack)
	case mode == timer.ModeBreak:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, store, logger, err := openForCLI()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pruner := ledger.NewPruner(store.Sessions(), cfg.History.RetentionDays, nil, logger)
	deleted, err := pruner.PruneOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Deleted %d session(s)\n", deleted)
	return nil
}
