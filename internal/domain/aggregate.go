package domain

import (
	"math"

	"github.com/samber/lo"
)

// SessionTotals sums the entries of one session block.
type SessionTotals struct {
	InputTokens      int
	OutputTokens     int
	CacheWriteTokens int
	CacheReadTokens  int
	CostUSD          float64
	Messages         int
	BurnRate         float64 // display tokens per minute
	CostRate         float64 // USD per minute
}

// TokensUsed returns input + output tokens.
func (s SessionTotals) TokensUsed() int {
	return s.InputTokens + s.OutputTokens
}

type DailyTotals struct {
	CostUSD float64
	Tokens  int // all four categories
}

type ModelTotals struct {
	InputTokens      int
	OutputTokens     int
	CacheWriteTokens int
	CacheReadTokens  int
	CostUSD          float64
}

// SummarizeSession sums token categories and cost over entries, which must be
// sorted by timestamp. Rates need at least two entries spanning a non-zero
// interval; otherwise they stay zero.
func SummarizeSession(entries []UsageRecord) SessionTotals {
	s := SessionTotals{Messages: len(entries)}
	for _, e := range entries {
		s.InputTokens += e.InputTokens
		s.OutputTokens += e.OutputTokens
		s.CacheWriteTokens += e.CacheWriteTokens
		s.CacheReadTokens += e.CacheReadTokens
		s.CostUSD += e.CostUSD
	}

	if len(entries) >= 2 {
		minutes := entries[len(entries)-1].Timestamp.Sub(entries[0].Timestamp).Minutes()
		if minutes > 0 {
			s.BurnRate = float64(s.TokensUsed()) / minutes
			s.CostRate = s.CostUSD / minutes
		}
	}
	return s
}

// SummarizeDaily totals cost and all token categories over entries.
func SummarizeDaily(entries []UsageRecord) DailyTotals {
	return DailyTotals{
		CostUSD: lo.SumBy(entries, func(e UsageRecord) float64 { return e.CostUSD }),
		Tokens:  lo.SumBy(entries, func(e UsageRecord) int { return e.TotalTokens() }),
	}
}

// BreakdownByModel groups entries by model and sums each group. Costs are
// rounded to four decimal places.
func BreakdownByModel(entries []UsageRecord) map[string]ModelTotals {
	result := make(map[string]ModelTotals)
	for model, group := range lo.GroupBy(entries, func(e UsageRecord) string { return e.Model }) {
		var mt ModelTotals
		for _, e := range group {
			mt.InputTokens += e.InputTokens
			mt.OutputTokens += e.OutputTokens
			mt.CacheWriteTokens += e.CacheWriteTokens
			mt.CacheReadTokens += e.CacheReadTokens
			mt.CostUSD += e.CostUSD
		}
		mt.CostUSD = Round(mt.CostUSD, 4)
		result[model] = mt
	}
	return result
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
