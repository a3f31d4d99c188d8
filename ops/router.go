// Package ops serves metrics, health and session status over HTTP.
package ops

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soocke/weapon-watch/domain/detection"
)

// StatusFunc reports the active session's stats; ok is false when no
// session is running.
type StatusFunc func() (stats detection.Stats, ok bool)

type statusResponse struct {
	Active            bool      `json:"active"`
	SessionID         string    `json:"session_id,omitempty"`
	StartedAt         time.Time `json:"started_at,omitzero"`
	Ticks             uint64    `json:"ticks"`
	FramesUnavailable uint64    `json:"frames_unavailable"`
	Dispatched        uint64    `json:"dispatched"`
	Busy              uint64    `json:"busy"`
	Failures          uint64    `json:"failures"`
	Detected          bool      `json:"detected"`
	Outstanding       bool      `json:"outstanding"`
}

// NewRouter builds the ops routes.
func NewRouter(status StatusFunc, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(recovery(logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		var resp statusResponse
		if status != nil {
			if st, ok := status(); ok {
				resp = statusResponse{
					Active:            true,
					SessionID:         st.SessionID,
					StartedAt:         st.StartedAt,
					Ticks:             st.Ticks,
					FramesUnavailable: st.FramesUnavailable,
					Dispatched:        st.Dispatched,
					Busy:              st.Busy,
					Failures:          st.Failures,
					Detected:          st.Detected,
					Outstanding:       st.Outstanding,
				}
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Debug("ops request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
