package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bowerhall/graphcol/internal/logger"
)

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) bool

type health struct {
	Status
	Sink string `json:"sink,omitempty"`
}

// NewRouter serves /healthz from the runner and the optional sink check, and
// /metrics from the given handler.
func NewRouter(r *Runner, metrics http.Handler, sink HealthFunc) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		h := health{Status: r.Status()}

		code := http.StatusOK
		if h.LastError != "" {
			code = http.StatusServiceUnavailable
		}

		if sink != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
			defer cancel()

			h.Sink = "ok"
			if !sink(ctx) {
				h.Sink = "unreachable"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(h); err != nil {
			logger.Debug("healthz write failed", "error", err)
		}
	})

	if metrics != nil {
		router.Method(http.MethodGet, "/metrics", metrics)
	}

	return router
}

// Serve runs an HTTP server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
