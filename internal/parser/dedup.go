package parser

import "github.com/anomredux/claude-relay/internal/domain"

// dedupSet tracks message:request keys seen during one ingestion pass.
type dedupSet map[string]struct{}

// Duplicate reports whether r was already seen and marks it otherwise.
// Records without a complete key are never duplicates.
func (s dedupSet) Duplicate(r domain.UsageRecord) bool {
	key := r.DedupKey()
	if key == "" {
		return false
	}
	if _, exists := s[key]; exists {
		return true
	}
	s[key] = struct{}{}
	return false
}
