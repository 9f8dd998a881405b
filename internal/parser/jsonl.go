package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/anomredux/claude-relay/internal/domain"
	"github.com/anomredux/claude-relay/internal/pricing"
)

// SkipReason explains why a log line produced no record.
type SkipReason string

const (
	SkipParseError   SkipReason = "parse_error"
	SkipNoUsage      SkipReason = "no_usage"
	SkipZeroTokens   SkipReason = "zero_tokens"
	SkipDuplicate    SkipReason = "duplicate"
	SkipBadTimestamp SkipReason = "bad_timestamp"
	SkipBeforeCutoff SkipReason = "before_cutoff"
)

// SkipReasons lists every reason in a stable order.
var SkipReasons = []SkipReason{
	SkipParseError, SkipNoUsage, SkipZeroTokens, SkipDuplicate, SkipBadTimestamp, SkipBeforeCutoff,
}

const unknownModel = "unknown"

// rawRecord maps the JSONL structure we care about. Any line type carrying
// usage counts is a usage event.
type rawRecord struct {
	Timestamp string   `json:"timestamp"`
	RequestID string   `json:"requestId"`
	CostUSD   *float64 `json:"costUSD"`
	Message   *struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage *struct {
			InputTokens              *int `json:"input_tokens"`
			OutputTokens             *int `json:"output_tokens"`
			CacheCreationInputTokens int  `json:"cache_creation_input_tokens"`
			CacheReadInputTokens     int  `json:"cache_read_input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

// pass is the state of one ingestion call: cutoff, dedup set and counters.
type pass struct {
	cutoff  time.Time
	calc    *pricing.Calculator
	seen    dedupSet
	stats   Stats
	records []domain.UsageRecord
}

func newPass(cutoff time.Time, calc *pricing.Calculator) *pass {
	return &pass{
		cutoff: cutoff,
		calc:   calc,
		seen:   make(dedupSet),
		stats:  newStats(),
	}
}

// readFrom streams JSONL from r line by line. Records parsed before a read
// error are kept.
func (p *pass) readFrom(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB max line

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		p.stats.Lines++

		rec, reason := p.parseLine(line)
		if reason != "" {
			p.stats.Skipped[reason]++
			continue
		}
		p.records = append(p.records, rec)
	}
	return scanner.Err()
}

// parseLine turns one line into a record or a skip reason.
func (p *pass) parseLine(line []byte) (domain.UsageRecord, SkipReason) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return domain.UsageRecord{}, SkipParseError
	}

	if raw.Message == nil || raw.Message.Usage == nil ||
		raw.Message.Usage.InputTokens == nil || raw.Message.Usage.OutputTokens == nil {
		return domain.UsageRecord{}, SkipNoUsage
	}

	usage := raw.Message.Usage
	rec := domain.UsageRecord{
		Model:            raw.Message.Model,
		MessageID:        raw.Message.ID,
		RequestID:        raw.RequestID,
		InputTokens:      *usage.InputTokens,
		OutputTokens:     *usage.OutputTokens,
		CacheWriteTokens: usage.CacheCreationInputTokens,
		CacheReadTokens:  usage.CacheReadInputTokens,
	}
	if rec.TotalTokens() == 0 {
		return domain.UsageRecord{}, SkipZeroTokens
	}

	if p.seen.Duplicate(rec) {
		return domain.UsageRecord{}, SkipDuplicate
	}

	ts, ok := parseTimestamp(raw.Timestamp)
	if !ok {
		return domain.UsageRecord{}, SkipBadTimestamp
	}
	if ts.Before(p.cutoff) {
		return domain.UsageRecord{}, SkipBeforeCutoff
	}
	rec.Timestamp = ts

	if rec.Model == "" {
		rec.Model = unknownModel
	}
	rec.CostUSD = p.calc.Calculate(rec, raw.CostUSD)
	return rec, ""
}

// parseTimestamp accepts ISO 8601 with a "Z" or numeric offset. Timestamps
// without an offset are read as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), true
	}
	if ts, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}
