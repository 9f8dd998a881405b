package api

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/anomredux/claude-relay/internal/domain"
)

type credField int

const (
	fieldTier credField = iota
	fieldSubscription
)

type matchKind int

const (
	matchContains matchKind = iota
	matchEquals
)

type planRule struct {
	field credField
	kind  matchKind
	value string
	plan  string
}

// planRules is evaluated top to bottom; the first match wins.
var planRules = []planRule{
	{fieldTier, matchContains, "max_20x", domain.PlanMax20},
	{fieldTier, matchContains, "max", domain.PlanMax5},
	{fieldSubscription, matchContains, "max", domain.PlanMax5},
	{fieldSubscription, matchEquals, "pro", domain.PlanPro},
}

func (r planRule) matches(cred Credential) bool {
	var v string
	switch r.field {
	case fieldTier:
		v = strings.ToLower(cred.RateLimitTier)
	case fieldSubscription:
		v = strings.ToLower(cred.SubscriptionType)
	}
	if r.kind == matchEquals {
		return v == r.value
	}
	return strings.Contains(v, r.value)
}

// DetectPlan guesses the subscription plan from the OAuth credential, then
// from the model configured in Claude Code's settings.json. A nil cred skips
// straight to the settings file.
func DetectPlan(cred *Credential, settingsPath string) string {
	if cred != nil {
		for _, r := range planRules {
			if r.matches(*cred) {
				return r.plan
			}
		}
	}
	if strings.Contains(settingsModel(settingsPath), "opus") {
		return domain.PlanMax5
	}
	return domain.PlanPro
}

func settingsModel(path string) string {
	if path == "" {
		return ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var settings struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return ""
	}
	return strings.ToLower(settings.Model)
}
