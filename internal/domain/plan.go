package domain

// PlanLimits are the per-session ceilings of a subscription tier.
type PlanLimits struct {
	CostLimit    float64
	MessageLimit int
	TokenLimit   int
}

const (
	PlanPro   = "pro"
	PlanMax5  = "max5"
	PlanMax20 = "max20"
)

// Per-session limits by plan. Empirical values, not published by the vendor.
var planLimits = map[string]PlanLimits{
	PlanPro:   {CostLimit: 18.0, MessageLimit: 250, TokenLimit: 19_000},
	PlanMax5:  {CostLimit: 35.0, MessageLimit: 1_000, TokenLimit: 88_000},
	PlanMax20: {CostLimit: 140.0, MessageLimit: 2_000, TokenLimit: 220_000},
}

// Plans lists the known plan names in ascending tier order.
func Plans() []string {
	return []string{PlanPro, PlanMax5, PlanMax20}
}

// ValidPlan reports whether name is a known plan.
func ValidPlan(name string) bool {
	_, ok := planLimits[name]
	return ok
}

// LimitsFor returns the limits of plan, falling back to pro.
func LimitsFor(plan string) PlanLimits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[PlanPro]
}
