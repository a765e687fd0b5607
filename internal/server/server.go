// Package server wires the CalDAV and MCP listeners against one Store
// and supervises their lifecycle: bind both ports, serve until the
// process is asked to stop, then drain each with its own shutdown
// timeout. Generalized from the teacher's single-listener main loop
// into a two-listener supervisor sharing one database pool.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jw6ventures/calcard/internal/caldav"
	"github.com/jw6ventures/calcard/internal/config"
	"github.com/jw6ventures/calcard/internal/logging"
	"github.com/jw6ventures/calcard/internal/mcp"
	"github.com/jw6ventures/calcard/internal/metrics"
	"github.com/jw6ventures/calcard/internal/store"
)

// Server supervises the CalDAV and MCP HTTP listeners, plus an
// optional standalone metrics listener.
type Server struct {
	cfg *config.Config

	caldavSrv  *http.Server
	mcpSrv     *http.Server
	metricsSrv *http.Server // nil unless CALCARD_METRICS_ADDR is set
}

// New builds a Server with both listeners configured against st, but
// not yet bound or serving. When metrics are enabled and no dedicated
// metrics address is configured, /metrics is mounted on the CalDAV
// listener's mux; otherwise it gets its own listener.
func New(cfg *config.Config, st *store.Store) *Server {
	caldavHandler := caldav.NewHandler(st, "calcard")
	mcpHandler := mcp.NewHandler(st)

	caldavRouter := wrap("caldav", caldav.NewRouter(caldavHandler))
	mcpRouter := wrap("mcp", mcp.NewRouter(mcpHandler))

	mountMetricsOnCalDAV := cfg.Metrics.Enabled && cfg.Metrics.Addr == ""

	s := &Server{
		cfg: cfg,
		caldavSrv: &http.Server{
			Addr:         cfg.CalDAVAddr,
			Handler:      withOpsRoutes(caldavRouter, mountMetricsOnCalDAV),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mcpSrv: &http.Server{
			Addr:         cfg.MCPAddr,
			Handler:      withOpsRoutes(mcpRouter, false),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		s.metricsSrv = &http.Server{
			Addr:         cfg.Metrics.Addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
	}

	return s
}

// wrap layers request-ID tagging and Prometheus instrumentation
// labelled by protocol around h.
func wrap(protocol string, h http.Handler) http.Handler {
	wrapped := middleware.RequestID(h)
	return metrics.Middleware(protocol)(wrapped)
}

// withOpsRoutes adds /healthz and /readyz ahead of next so both
// listeners answer liveness/readiness probes without going through
// protocol-specific auth, and optionally mounts /metrics alongside
// them.
func withOpsRoutes(next http.Handler, mountMetrics bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if mountMetrics {
		mux.Handle("/metrics", metrics.Handler())
	}
	mux.Handle("/", next)
	return mux
}

// Run binds every configured listener and serves until ctx is
// cancelled, then drains each within the configured shutdown timeout.
// Returns the first non-graceful listener error encountered, if any.
func (s *Server) Run(ctx context.Context) error {
	listeners := []struct {
		name string
		srv  *http.Server
	}{
		{"caldav", s.caldavSrv},
		{"mcp", s.mcpSrv},
	}
	if s.metricsSrv != nil {
		listeners = append(listeners, struct {
			name string
			srv  *http.Server
		}{"metrics", s.metricsSrv})
	}

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		l := l
		go func() {
			logging.Info(ctx, l.name+" listener starting", "addr", l.srv.Addr)
			if err := l.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s listener: %w", l.name, err)
				return
			}
			errCh <- nil
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return err
		}
	}

	logging.Info(ctx, "shutting down")
	return s.shutdown()
}

// shutdown drains every bound server concurrently, each within the
// configured shutdown timeout, and returns the first error among them.
func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	srvs := []*http.Server{s.caldavSrv, s.mcpSrv}
	if s.metricsSrv != nil {
		srvs = append(srvs, s.metricsSrv)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(srvs))
	for i, srv := range srvs {
		i, srv := i, srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = srv.Shutdown(shutdownCtx)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
