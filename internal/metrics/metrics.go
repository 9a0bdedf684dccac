package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SessionsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskpet_sessions_ended_total",
			Help: "Sessions ended, by mode and reason",
		},
		[]string{"mode", "reason"},
	)

	RemindersTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskpet_reminders_triggered_total",
			Help: "Interval expiry reminders fired",
		},
		[]string{"mode"},
	)

	FocusSecondsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskpet_focus_seconds_committed_total",
			Help: "Focus seconds folded into the daily total",
		},
	)

	SessionRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deskpet_session_running",
			Help: "1 while a session of the given mode is running",
		},
		[]string{"mode"},
	)

	HistoryPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskpet_history_pruned_total",
			Help: "Session history records removed by retention",
		},
	)

	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskpet_storage_errors_total",
			Help: "Failed storage operations",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsEnded,
		RemindersTriggered,
		FocusSecondsCommitted,
		SessionRunning,
		HistoryPruned,
		StorageErrors,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start binds the listen address and serves in the background. Bind errors
// are returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting metrics server")
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
