package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomredux/claude-relay/internal/api"
	"github.com/anomredux/claude-relay/internal/metrics"
	"github.com/anomredux/claude-relay/internal/report"
	"github.com/anomredux/claude-relay/internal/weather"
)

type stubReports struct {
	calls atomic.Int32
	plan  atomic.Value
}

func (s *stubReports) Get(_ context.Context, plan string) report.Metrics {
	s.calls.Add(1)
	s.plan.Store(plan)
	return report.Metrics{
		Session: report.Session{MessagesSent: 3, MinutesRemaining: 120},
		Models:  map[string]report.Model{},
		Plan:    plan,
		TS:      "2026-02-19T12:00:00.000000+00:00",
	}
}

type stubUsage struct{ payload *api.UsagePayload }

func (s stubUsage) Fetch(context.Context) *api.UsagePayload { return s.payload }

type stubWeather struct{ r weather.Report }

func (s stubWeather) Get(context.Context, string) weather.Report { return s.r }

var fixedNow = time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, d Deps) (http.Handler, *stubReports) {
	t.Helper()
	reports := &stubReports{}
	if d.Reports == nil {
		d.Reports = reports
	}
	if d.Plan == "" {
		d.Plan = "max5"
	}
	d.Location = time.UTC
	d.Now = func() time.Time { return fixedNow }
	d.Log = zerolog.Nop()
	return NewRouter(d), reports
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestUsageEndpoint(t *testing.T) {
	h, reports := newTestRouter(t, Deps{
		Usage: stubUsage{payload: &api.UsagePayload{
			FiveHour: &api.Bucket{Utilization: 61.2, ResetsAt: "2026-02-19T13:30:00Z"},
		}},
		Weather: stubWeather{r: weather.Report{City: "London, United Kingdom", Condition: "overcast", Icon: "OVC"}},
	})

	rec := get(h, "/api/usage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "max5", reports.plan.Load())

	var body struct {
		Utilization api.Utilization `json:"utilization"`
		Session     report.Session  `json:"session"`
		Models      map[string]any  `json:"models"`
		Plan        string          `json:"plan"`
		Clock       report.Clock    `json:"clock"`
		Weather     weather.Report  `json:"weather"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, api.UtilizationBucket{Pct: 61, ResetLabel: "1h30m @13:30"}, body.Utilization.Session)
	assert.Equal(t, api.UtilizationBucket{}, body.Utilization.Weekly)
	assert.Equal(t, 3, body.Session.MessagesSent)
	assert.Equal(t, "max5", body.Plan)
	assert.Equal(t, report.Clock{Hour: 12, Day: 19, Month: 2, Year: 2026, Weekday: 3}, body.Clock)
	assert.Equal(t, "London, United Kingdom", body.Weather.City)
	assert.NotNil(t, body.Models)
}

func TestUsageEndpointWithoutCollaborators(t *testing.T) {
	h, _ := newTestRouter(t, Deps{})

	rec := get(h, "/api/usage")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, `{"error":"disabled"}`, string(body["weather"]))
	assert.JSONEq(t, `{"session":{"pct":0,"reset_label":""},"weekly":{"pct":0,"reset_label":""},"sonnet":{"pct":0,"reset_label":""}}`,
		string(body["utilization"]))
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, Deps{})

	rec := get(h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
}

func TestUnknownPath(t *testing.T) {
	h, reports := newTestRouter(t, Deps{})

	for _, path := range []string{"/", "/api", "/api/usage/extra", "/favicon.ico"} {
		rec := get(h, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Zero(t, reports.calls.Load())
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	h, _ := newTestRouter(t, Deps{Metrics: m.Handler(), Observer: m})

	get(h, "/health")
	rec := get(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `claude_relay_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestMetricsNotMountedByDefault(t *testing.T) {
	h, _ := newTestRouter(t, Deps{})
	assert.Equal(t, http.StatusNotFound, get(h, "/metrics").Code)
}

func TestRateLimit(t *testing.T) {
	h, _ := newTestRouter(t, Deps{RateLimit: 0.5}) // burst 1

	assert.Equal(t, http.StatusOK, get(h, "/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "/health").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	h, _ := newTestRouter(t, Deps{})
	for range 50 {
		require.Equal(t, http.StatusOK, get(h, "/health").Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h, _ := newTestRouter(t, Deps{})
	s := New(ln.Addr().String(), h, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}
