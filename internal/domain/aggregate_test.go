package domain

import (
	"math"
	"testing"
	"time"
)

func TestSummarizeSession(t *testing.T) {
	base := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	entries := []UsageRecord{
		{Timestamp: base, InputTokens: 100, OutputTokens: 50, CacheWriteTokens: 10, CacheReadTokens: 1000, CostUSD: 1.0},
		{Timestamp: base.Add(10 * time.Minute), InputTokens: 200, OutputTokens: 150, CostUSD: 2.0},
	}

	s := SummarizeSession(entries)

	if s.Messages != 2 {
		t.Errorf("Messages = %d, want 2", s.Messages)
	}
	if s.TokensUsed() != 500 {
		t.Errorf("TokensUsed = %d, want 500", s.TokensUsed())
	}
	if s.CacheWriteTokens != 10 || s.CacheReadTokens != 1000 {
		t.Errorf("cache tokens = %d/%d, want 10/1000", s.CacheWriteTokens, s.CacheReadTokens)
	}
	if s.BurnRate != 50 { // 500 tokens / 10 min
		t.Errorf("BurnRate = %v, want 50", s.BurnRate)
	}
	if math.Abs(s.CostRate-0.3) > 1e-9 { // 3.0 / 10 min
		t.Errorf("CostRate = %v, want 0.3", s.CostRate)
	}
}

func TestSummarizeSession_RatesNeedSpan(t *testing.T) {
	ts := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		entries []UsageRecord
	}{
		{"empty", nil},
		{"single entry", []UsageRecord{{Timestamp: ts, InputTokens: 100, CostUSD: 1}}},
		{"zero span", []UsageRecord{
			{Timestamp: ts, InputTokens: 100, CostUSD: 1},
			{Timestamp: ts, InputTokens: 100, CostUSD: 1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SummarizeSession(tt.entries)
			if s.BurnRate != 0 || s.CostRate != 0 {
				t.Errorf("rates = %v/%v, want 0/0", s.BurnRate, s.CostRate)
			}
		})
	}
}

func TestSummarizeDaily(t *testing.T) {
	entries := []UsageRecord{
		{InputTokens: 100, OutputTokens: 50, CacheWriteTokens: 25, CacheReadTokens: 10, CostUSD: 1.5},
		{InputTokens: 1, CostUSD: 0.25},
	}
	d := SummarizeDaily(entries)
	if d.Tokens != 186 {
		t.Errorf("Tokens = %d, want 186", d.Tokens)
	}
	if d.CostUSD != 1.75 {
		t.Errorf("CostUSD = %v, want 1.75", d.CostUSD)
	}
}

func TestBreakdownByModel(t *testing.T) {
	entries := []UsageRecord{
		{Model: "claude-opus-4-6", InputTokens: 100, OutputTokens: 10, CostUSD: 0.123456},
		{Model: "claude-opus-4-6", InputTokens: 50, CacheReadTokens: 7, CostUSD: 0.1},
		{Model: "claude-haiku-4-5", OutputTokens: 5, CacheWriteTokens: 3, CostUSD: 0.00001},
	}

	got := BreakdownByModel(entries)

	if len(got) != 2 {
		t.Fatalf("got %d models, want 2", len(got))
	}
	opus := got["claude-opus-4-6"]
	if opus.InputTokens != 150 || opus.OutputTokens != 10 || opus.CacheReadTokens != 7 {
		t.Errorf("opus tokens = %+v", opus)
	}
	if opus.CostUSD != 0.2235 {
		t.Errorf("opus cost = %v, want 0.2235 (rounded to 4dp)", opus.CostUSD)
	}
	haiku := got["claude-haiku-4-5"]
	if haiku.CostUSD != 0 {
		t.Errorf("haiku cost = %v, want 0 after rounding", haiku.CostUSD)
	}
	if haiku.CacheWriteTokens != 3 {
		t.Errorf("haiku cache write = %d, want 3", haiku.CacheWriteTokens)
	}
}

func TestBreakdownByModel_Empty(t *testing.T) {
	got := BreakdownByModel(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil map", got)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{1.23456, 4, 1.2346},
		{1.25, 1, 1.3},
		{299.96, 1, 300.0},
		{0, 6, 0},
	}
	for _, tt := range tests {
		if got := Round(tt.v, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}
