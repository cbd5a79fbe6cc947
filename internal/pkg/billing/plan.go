package billing

import "strings"

// Internal plan identifiers. PlanFree is the fallback whenever a provider
// price ref has no active mapping and checkout metadata names no plan.
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanGrowth  = "growth"
	PlanScale   = "scale"
)

func normalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case PlanStarter:
		return PlanStarter
	case PlanGrowth:
		return PlanGrowth
	case PlanScale:
		return PlanScale
	default:
		return PlanFree
	}
}
