package domain

import "time"

const (
	// BlockDuration is the length of one rate-limit session window.
	BlockDuration = 5 * time.Hour

	// lookback bounds the records considered for the active block. A block
	// that still overlaps now cannot have started earlier than this.
	lookback = 2 * BlockDuration
)

// DefaultMinutesRemaining is reported when no block is active: a fresh
// window would start now.
var DefaultMinutesRemaining = BlockDuration.Minutes()

type SessionBlock struct {
	Start   time.Time
	End     time.Time // Start + 5h
	Entries []UsageRecord
}

// Active reports whether the block still covers now.
func (b SessionBlock) Active(now time.Time) bool {
	return b.End.After(now)
}

// BuildBlocks groups records into hour-anchored 5-hour session blocks.
// Records must be sorted by timestamp (ascending). A record exactly on a
// block's end belongs to that block; only a later record opens a new one.
func BuildBlocks(records []UsageRecord) []SessionBlock {
	if len(records) == 0 {
		return nil
	}

	var blocks []SessionBlock
	var current *SessionBlock

	for _, r := range records {
		if current == nil || r.Timestamp.After(current.End) {
			if current != nil {
				blocks = append(blocks, *current)
			}
			start := r.Timestamp.Truncate(time.Hour)
			current = &SessionBlock{
				Start: start,
				End:   start.Add(BlockDuration),
			}
		}
		current.Entries = append(current.Entries, r)
	}

	if current != nil {
		blocks = append(blocks, *current)
	}
	return blocks
}

// DetectActiveSession returns the entries of the block covering now together
// with the minutes left in it. With no active block it returns no entries and
// a full window.
func DetectActiveSession(records []UsageRecord, now time.Time) ([]UsageRecord, float64) {
	since := now.Add(-lookback)
	recent := make([]UsageRecord, 0, len(records))
	for _, r := range records {
		if !r.Timestamp.Before(since) {
			recent = append(recent, r)
		}
	}
	if len(recent) == 0 {
		return nil, DefaultMinutesRemaining
	}

	blocks := BuildBlocks(recent)
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].Active(now) {
			remaining := blocks[i].End.Sub(now).Minutes()
			if remaining < 0 {
				remaining = 0
			}
			return blocks[i].Entries, remaining
		}
	}
	return nil, DefaultMinutesRemaining
}
