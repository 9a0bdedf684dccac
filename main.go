package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"deskpet/internal"
	"deskpet/internal/config"
	"deskpet/internal/ledger"
	"deskpet/internal/metrics"
	"deskpet/internal/settings"
	"deskpet/internal/storage"
	"deskpet/internal/storage/bolt"
	"deskpet/internal/storage/redis"
	"deskpet/internal/storage/sqlite"
	"deskpet/internal/timer"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	Execute()
}

// runTUI is the default command: the interactive focus companion.
func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLogOutput(cfg.Logging.Path)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := setupLogger(cfg.Logging, logOut)

	logger.Info().
		Str("version", version).
		Str("storage", cfg.Storage.Type).
		Msg("Starting deskpet")

	store, err := openStore(cfg.Storage)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open storage")
		return fmt.Errorf("failed to open storage: %w", err)
	}

	// Stored durations win over the config file once the user changed them.
	svc := settings.NewService(store.Settings(), settings.Settings{
		FocusMinutes: cfg.Pomodoro.FocusMinutes,
		BreakMinutes: cfg.Pomodoro.BreakMinutes,
	}, logger)
	current, err := svc.Load(cmd.Context())
	if err != nil {
		_ = store.Close()
		return err
	}

	engine := timer.New(timer.Config{
		FocusMinutes:  current.FocusMinutes,
		BreakMinutes:  current.BreakMinutes,
		TickInterval:  cfg.Pomodoro.TickDuration(),
		CloseOnSwitch: cfg.Pomodoro.CloseOnSwitch,
	}, logger)
	recorder := ledger.NewRecorder(svc, store.Sessions(), nil, logger)

	pruner := ledger.NewPruner(store.Sessions(), cfg.History.RetentionDays, nil, logger)
	pruner.Start()
	defer pruner.Stop()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Address, logger)
		if err := metricsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start metrics server")
		} else {
			defer func() { _ = metricsServer.Stop() }()
		}
	}

	m := internal.NewModel(internal.Deps{
		Timer:    engine,
		Recorder: recorder,
		Settings: svc,
		Store:    store,
		Logger:   logger,
	})
	defer func() {
		if err := m.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go engine.Run(ctx)

	p := tea.NewProgram(m, tea.WithAltScreen())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Send(internal.MsgTick{})
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	// Stop the engine before the model commits the running session.
	cancel()
	return nil
}

func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return sqlite.Open(cfg.Path)
	}
}

// openLogOutput returns the log destination. The TUI owns stdout, so an empty
// path falls back to stderr rather than stdout.
func openLogOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: true}).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
