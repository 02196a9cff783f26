// Package ops serves the operational HTTP endpoints of alarmee-server:
// Prometheus metrics, a health probe and an iCalendar feed of scheduled alarms.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/export/ical"
	"github.com/oshokin/alarmee/internal/logger"
)

// requestTimeout bounds a single ops request.
const requestTimeout = 10 * time.Second

// Lister returns scheduled alarms for the calendar feed.
type Lister interface {
	List(ctx context.Context) ([]*domain.Scheduled, error)
}

// Health is the body of /healthz.
type Health struct {
	Status   string `json:"status"`
	Platform string `json:"platform"`
	Version  string `json:"version"`
}

// Options wires the router.
type Options struct {
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Alarms serves /alarms.ics when set.
	Alarms Lister
	// Health is reported verbatim by /healthz.
	Health Health
	// Now stamps calendar exports.
	Now func() time.Time
}

// NewRouter builds the ops handler.
func NewRouter(opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer, middleware.Timeout(requestTimeout), middleware.NoCache)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		//nolint:errchkjson // Health is a flat struct of strings.
		_ = json.NewEncoder(w).Encode(opts.Health)
	})

	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	if opts.Alarms != nil {
		router.Get("/alarms.ics", calendarHandler(opts.Alarms, opts.Now))
	}

	return router
}

func calendarHandler(alarms Lister, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithName(r.Context(), "ops")

		entries, err := alarms.List(ctx)
		if err != nil {
			logger.ErrorKV(ctx, "Failed to list alarms for calendar", "error", err)
			http.Error(w, "unable to list alarms", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="alarms.ics"`)

		if err = ical.Encode(w, entries, now()); err != nil {
			logger.ErrorKV(ctx, "Failed to encode calendar", "error", err)
		}
	}
}
