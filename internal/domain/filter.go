package domain

import (
	"time"

	"github.com/samber/lo"
)

// DayStart returns local midnight of now's calendar day in tz.
func DayStart(now time.Time, tz *time.Location) time.Time {
	local := now.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// FilterSince returns the records at or after since.
func FilterSince(records []UsageRecord, since time.Time) []UsageRecord {
	return lo.Filter(records, func(r UsageRecord, _ int) bool {
		return !r.Timestamp.Before(since)
	})
}
