package report

import (
	"time"

	"github.com/anomredux/claude-relay/internal/api"
	"github.com/anomredux/claude-relay/internal/weather"
)

// Clock is the wall time shown on the display. Weekday counts from Monday=0.
type Clock struct {
	Hour    int `json:"hour"`
	Minute  int `json:"minute"`
	Second  int `json:"second"`
	Day     int `json:"day"`
	Month   int `json:"month"`
	Year    int `json:"year"`
	Weekday int `json:"weekday"`
}

func NewClock(t time.Time) Clock {
	return Clock{
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		Day:     t.Day(),
		Month:   int(t.Month()),
		Year:    t.Year(),
		Weekday: (int(t.Weekday()) + 6) % 7,
	}
}

// Response is the body of GET /api/usage.
type Response struct {
	Utilization api.Utilization `json:"utilization"`
	Metrics
	Clock   Clock          `json:"clock"`
	Weather weather.Report `json:"weather"`
}

// Assemble attaches the per-request fields to cached Metrics. m is copied,
// never modified.
func Assemble(m Metrics, u api.Utilization, clock Clock, wx weather.Report) Response {
	return Response{
		Utilization: u,
		Metrics:     m,
		Clock:       clock,
		Weather:     wx,
	}
}
