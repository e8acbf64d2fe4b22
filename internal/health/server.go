package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hearthlab/hearth/internal/component"
)

// DefaultPollInterval is how often the long-running server re-checks.
const DefaultPollInterval = 30 * time.Second

// Server exposes health status as JSON plus Prometheus metrics for the
// long-running `health serve` mode.
type Server struct {
	monitor    *Monitor
	components []component.Spec
	interval   time.Duration

	mu        sync.Mutex
	records   []Record
	checkedAt time.Time
}

func NewServer(monitor *Monitor, components []component.Spec, interval time.Duration) *Server {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Server{
		monitor:    monitor,
		components: components,
		interval:   interval,
	}
}

// Refresh runs one comprehensive check cycle and caches the result.
func (s *Server) Refresh(ctx context.Context) {
	records := s.monitor.Check(ctx, s.components, true)
	s.mu.Lock()
	s.records = records
	s.checkedAt = time.Now()
	s.mu.Unlock()
}

// Handler returns the HTTP surface: /healthz with the latest records and
// /metrics in Prometheus format.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleStatus)
	mux.Handle("/metrics", s.monitor.Metrics().Handler())
	return mux
}

// Run serves until the context is cancelled, re-checking on the
// configured interval.
func (s *Server) Run(ctx context.Context, listen string) error {
	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", listen, err)
	}

	s.Refresh(ctx)

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(listener) }()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
			<-serveErr
			return ctx.Err()
		case err := <-serveErr:
			return fmt.Errorf("health server failed: %w", err)
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// statusResponse is the /healthz JSON shape.
type statusResponse struct {
	Status     Status    `json:"status"`
	CheckedAt  time.Time `json:"checked_at"`
	Components []Record  `json:"components"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	response := statusResponse{
		Status:     Aggregate(s.records),
		CheckedAt:  s.checkedAt,
		Components: s.records,
	}
	s.mu.Unlock()

	code := http.StatusOK
	if response.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response)
}
