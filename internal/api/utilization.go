package api

import (
	"fmt"
	"math"
	"time"
)

// resetHorizon is how far ahead a reset is shown as a countdown instead of a
// weekday.
const resetHorizon = 5 * time.Hour

var dayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// UtilizationBucket is one category as sent to the display.
type UtilizationBucket struct {
	Pct        int    `json:"pct"`
	ResetLabel string `json:"reset_label"`
}

// Utilization is the display-facing view of a UsagePayload.
type Utilization struct {
	Session UtilizationBucket `json:"session"`
	Weekly  UtilizationBucket `json:"weekly"`
	Sonnet  UtilizationBucket `json:"sonnet"`
}

// BuildUtilization maps the API buckets onto display categories. A nil
// payload yields zeroed buckets so the display always gets all three keys.
func BuildUtilization(p *UsagePayload, now time.Time, loc *time.Location) Utilization {
	if p == nil {
		return Utilization{}
	}
	return Utilization{
		Session: buildBucket(p.FiveHour, now, loc),
		Weekly:  buildBucket(p.SevenDay, now, loc),
		Sonnet:  buildBucket(p.SevenDaySonnet, now, loc),
	}
}

func buildBucket(b *Bucket, now time.Time, loc *time.Location) UtilizationBucket {
	if b == nil {
		return UtilizationBucket{}
	}
	return UtilizationBucket{
		Pct:        int(math.RoundToEven(b.Utilization)),
		ResetLabel: ResetLabel(b.ResetsAt, now, loc),
	}
}

// ResetLabel formats a reset instant for a small screen:
// "now", "2h05m @14:30", "45m @14:30" or "Mon @14:30".
// Unparseable input yields "".
func ResetLabel(resetsAt string, now time.Time, loc *time.Location) string {
	if resetsAt == "" {
		return ""
	}
	reset, err := time.Parse(time.RFC3339, resetsAt)
	if err != nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}

	left := reset.Sub(now)
	if left <= 0 {
		return "now"
	}
	local := reset.In(loc)
	clock := local.Format("15:04")
	if left < resetHorizon {
		mins := int(math.Floor(left.Minutes()))
		h, m := mins/60, mins%60
		if h > 0 {
			return fmt.Sprintf("%dh%02dm @%s", h, m, clock)
		}
		return fmt.Sprintf("%dm @%s", m, clock)
	}
	return fmt.Sprintf("%s @%s", dayNames[(int(local.Weekday())+6)%7], clock)
}
