package pricing

import "github.com/anomredux/claude-relay/internal/domain"

type CostMode string

const (
	CostModeAuto      CostMode = "auto"
	CostModeDisplay   CostMode = "display"
	CostModeCalculate CostMode = "calculate"
)

// ValidMode reports whether m is a known cost mode.
func ValidMode(m CostMode) bool {
	switch m {
	case CostModeAuto, CostModeDisplay, CostModeCalculate:
		return true
	}
	return false
}

type Calculator struct {
	table Table
	mode  CostMode
}

func NewCalculator(table Table, mode CostMode) *Calculator {
	return &Calculator{table: table, mode: mode}
}

// Calculate returns the cost in USD for a record. embedded is the cost
// logged alongside the record, nil when the line had none.
func (c *Calculator) Calculate(r domain.UsageRecord, embedded *float64) float64 {
	switch c.mode {
	case CostModeDisplay:
		if embedded == nil {
			return 0
		}
		return *embedded
	case CostModeCalculate:
		return c.fromTokens(r)
	default: // auto
		if embedded != nil {
			return *embedded
		}
		return c.fromTokens(r)
	}
}

func (c *Calculator) fromTokens(r domain.UsageRecord) float64 {
	return c.table.Cost(r.Model, r.InputTokens, r.OutputTokens, r.CacheWriteTokens, r.CacheReadTokens)
}
