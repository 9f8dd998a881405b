package domain

import "time"

// UsageRecord is one billable request parsed from a JSONL log line.
// Records are immutable once parsed.
type UsageRecord struct {
	Timestamp        time.Time
	Model            string
	MessageID        string
	RequestID        string
	InputTokens      int
	OutputTokens     int
	CacheWriteTokens int
	CacheReadTokens  int
	CostUSD          float64
}

// TotalTokens returns input + output + cache tokens.
func (r UsageRecord) TotalTokens() int {
	return r.InputTokens + r.OutputTokens + r.CacheWriteTokens + r.CacheReadTokens
}

// DisplayTokens returns input + output, the figure compared against plan token limits.
func (r UsageRecord) DisplayTokens() int {
	return r.InputTokens + r.OutputTokens
}

// DedupKey returns the composite message:request key, or "" when either id
// is missing. Records with an empty key are never deduplicated.
func (r UsageRecord) DedupKey() string {
	if r.MessageID == "" || r.RequestID == "" {
		return ""
	}
	return r.MessageID + ":" + r.RequestID
}
