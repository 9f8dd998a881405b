package parser

import (
	"testing"

	"github.com/anomredux/claude-relay/internal/domain"
)

func TestDedupSet(t *testing.T) {
	seen := make(dedupSet)

	records := []struct {
		r    domain.UsageRecord
		want bool
	}{
		{domain.UsageRecord{MessageID: "msg_1", RequestID: "req_1"}, false},
		{domain.UsageRecord{MessageID: "msg_1", RequestID: "req_1"}, true},
		{domain.UsageRecord{MessageID: "msg_1", RequestID: "req_2"}, false},
		{domain.UsageRecord{MessageID: "msg_2"}, false},
		{domain.UsageRecord{MessageID: "msg_2"}, false}, // no request id, kept
		{domain.UsageRecord{}, false},
		{domain.UsageRecord{}, false},
	}

	for i, tt := range records {
		if got := seen.Duplicate(tt.r); got != tt.want {
			t.Errorf("record %d: Duplicate = %v, want %v", i, got, tt.want)
		}
	}
	if len(seen) != 2 {
		t.Errorf("tracked %d keys, want 2", len(seen))
	}
}
