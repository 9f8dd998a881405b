// Package server exposes the usage report over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/anomredux/claude-relay/internal/api"
	"github.com/anomredux/claude-relay/internal/report"
	"github.com/anomredux/claude-relay/internal/weather"
)

const shutdownTimeout = 10 * time.Second

// Reports serves cached report metrics. *report.Cache satisfies it.
type Reports interface {
	Get(ctx context.Context, plan string) report.Metrics
}

// UsageFetcher returns the remote utilization payload, or nil. *api.Client
// satisfies it.
type UsageFetcher interface {
	Fetch(ctx context.Context) *api.UsagePayload
}

// WeatherSource returns current weather for a location. *weather.Service
// satisfies it.
type WeatherSource interface {
	Get(ctx context.Context, location string) weather.Report
}

type Deps struct {
	Reports     Reports
	Usage       UsageFetcher
	Weather     WeatherSource
	Plan        string
	WeatherCity string
	// Location is the zone for the clock and reset labels.
	Location *time.Location
	Now      func() time.Time
	// Metrics, if set, is mounted at /metrics.
	Metrics   http.Handler
	Observer  RequestObserver
	RateLimit float64
	Log       zerolog.Logger
}

type handlers struct {
	Deps
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) http.Handler {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{Deps: d}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(AccessLog(d.Log, d.Observer))
	r.Use(RateLimit(d.RateLimit))

	r.Get("/api/usage", h.usage)
	r.Get("/health", h.health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	r.NotFound(http.NotFound)
	return r
}

func (h *handlers) usage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m := h.Reports.Get(ctx, h.Plan)

	now := h.Now().In(h.Location)
	var payload *api.UsagePayload
	if h.Usage != nil {
		payload = h.Usage.Fetch(ctx)
	}
	wx := weather.Report{Error: "disabled"}
	if h.Weather != nil {
		wx = h.Weather.Get(ctx, h.WeatherCity)
	}

	resp := report.Assemble(m, api.BuildUtilization(payload, now, h.Location), report.NewClock(now), wx)
	body, err := json.Marshal(resp)
	if err != nil {
		h.Log.Error().Err(err).Msg("encode usage response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

func New(addr string, handler http.Handler, log zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then drains connections for up to
// ten seconds.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
