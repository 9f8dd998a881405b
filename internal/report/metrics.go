package report

import (
	"time"

	"github.com/anomredux/claude-relay/internal/domain"
)

// tsLayout matches ISO-8601 with microseconds and a numeric offset.
const tsLayout = "2006-01-02T15:04:05.000000-07:00"

// Session is the active 5-hour block against the plan's limits.
type Session struct {
	CostUSD          float64 `json:"cost_usd"`
	CostLimit        float64 `json:"cost_limit"`
	TokensUsed       int     `json:"tokens_used"`
	TokenLimit       int     `json:"token_limit"`
	MessagesSent     int     `json:"messages_sent"`
	MessageLimit     int     `json:"message_limit"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	CacheWriteTokens int     `json:"cache_write_tokens"`
	CacheReadTokens  int     `json:"cache_read_tokens"`
	BurnRate         float64 `json:"burn_rate"`
	CostRate         float64 `json:"cost_rate"`
	MinutesRemaining float64 `json:"minutes_remaining"`
}

// Daily totals since local midnight.
type Daily struct {
	CostUSD float64 `json:"cost_usd"`
	Tokens  int     `json:"tokens"`
}

// Model is one model's share of today's usage.
type Model struct {
	Input      int     `json:"input"`
	Output     int     `json:"output"`
	CacheWrite int     `json:"cache_write"`
	CacheRead  int     `json:"cache_read"`
	Cost       float64 `json:"cost"`
}

// Metrics is the cacheable part of the usage report.
type Metrics struct {
	Session Session          `json:"session"`
	Daily   Daily            `json:"daily"`
	Models  map[string]Model `json:"models"`
	Plan    string           `json:"plan"`
	TS      string           `json:"ts"`
}

func newMetrics(plan string, now time.Time, session []domain.UsageRecord, remaining float64, daily []domain.UsageRecord) Metrics {
	limits := domain.LimitsFor(plan)
	st := domain.SummarizeSession(session)
	dt := domain.SummarizeDaily(daily)

	models := make(map[string]Model)
	for name, mt := range domain.BreakdownByModel(daily) {
		models[name] = Model{
			Input:      mt.InputTokens,
			Output:     mt.OutputTokens,
			CacheWrite: mt.CacheWriteTokens,
			CacheRead:  mt.CacheReadTokens,
			Cost:       mt.CostUSD,
		}
	}

	return Metrics{
		Session: Session{
			CostUSD:          domain.Round(st.CostUSD, 4),
			CostLimit:        limits.CostLimit,
			TokensUsed:       st.TokensUsed(),
			TokenLimit:       limits.TokenLimit,
			MessagesSent:     st.Messages,
			MessageLimit:     limits.MessageLimit,
			InputTokens:      st.InputTokens,
			OutputTokens:     st.OutputTokens,
			CacheWriteTokens: st.CacheWriteTokens,
			CacheReadTokens:  st.CacheReadTokens,
			BurnRate:         domain.Round(st.BurnRate, 1),
			CostRate:         domain.Round(st.CostRate, 6),
			MinutesRemaining: domain.Round(remaining, 1),
		},
		Daily: Daily{
			CostUSD: domain.Round(dt.CostUSD, 4),
			Tokens:  dt.Tokens,
		},
		Models: models,
		Plan:   plan,
		TS:     now.UTC().Format(tsLayout),
	}
}
