// ABOUTME: HTTP status server for the listener
// ABOUTME: Serves /metrics, /healthz and /status with chi
package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Resonate-Protocol/onair-go/pkg/onair"
	"github.com/Resonate-Protocol/onair-go/pkg/relay"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Source provides the listener state
type Source interface {
	Status() onair.Status
	Stats() relay.Stats
}

// StatusResponse is the body of GET /status
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Server    string `json:"server,omitempty"`
	Live      bool   `json:"live"`
	Title     string `json:"title,omitempty"`
	SinkState string `json:"sink_state"`
	Message   string `json:"message,omitempty"`

	Received     int64 `json:"received"`
	Written      int64 `json:"written"`
	WrittenBytes int64 `json:"written_bytes"`
	Rejected     int64 `json:"rejected"`
	Dropped      int64 `json:"dropped"`
	Cleared      int64 `json:"cleared"`
	StaleSignals int64 `json:"stale_signals"`
	ForceStops   int64 `json:"force_stops"`
	Queued       int   `json:"queued"`
	QueuedBytes  int   `json:"queued_bytes"`
}

// Server exposes listener state over HTTP
type Server struct {
	addr   string
	source Source
	reg    prometheus.Gatherer
	logger *slog.Logger
}

// New creates a status server listening on addr
func New(addr string, source Source, reg prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, source: source, reg: reg, logger: logger}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Get("/status", s.status)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return r
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if !s.source.Status().Connected {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st := s.source.Status()
	stats := s.source.Stats()

	writeJSON(w, http.StatusOK, StatusResponse{
		Connected:    st.Connected,
		Server:       st.Server,
		Live:         st.Live,
		Title:        st.Title,
		SinkState:    st.SinkState.String(),
		Message:      st.Message,
		Received:     stats.Received,
		Written:      stats.Written,
		WrittenBytes: stats.WrittenBytes,
		Rejected:     stats.Rejected,
		Dropped:      stats.Dropped,
		Cleared:      stats.Cleared,
		StaleSignals: stats.StaleSignals,
		ForceStops:   stats.ForceStops,
		Queued:       stats.Queued,
		QueuedBytes:  stats.QueuedBytes,
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
