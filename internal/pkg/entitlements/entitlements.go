package entitlements

import (
	"strings"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanGrowth  Plan = "growth"
	PlanScale   Plan = "scale"
)

// Entitlements are the feature limits a billing plan grants an organization.
type Entitlements struct {
	MaxSeats     int  `json:"max_seats"`
	MaxProjects  int  `json:"max_projects"`
	APIAccess    bool `json:"api_access"`
	PrioritySLA  bool `json:"priority_sla"`
	AuditLogDays int  `json:"audit_log_days"`
}

// ForPlan returns the entitlements for a plan. Unknown plans fall back to the
// free tier.
func ForPlan(plan string) Entitlements {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanScale:
		return Entitlements{MaxSeats: 250, MaxProjects: 500, APIAccess: true, PrioritySLA: true, AuditLogDays: 365}
	case PlanGrowth:
		return Entitlements{MaxSeats: 50, MaxProjects: 100, APIAccess: true, PrioritySLA: false, AuditLogDays: 90}
	case PlanStarter:
		return Entitlements{MaxSeats: 10, MaxProjects: 20, APIAccess: true, PrioritySLA: false, AuditLogDays: 30}
	default:
		return Entitlements{MaxSeats: 3, MaxProjects: 3, APIAccess: false, PrioritySLA: false, AuditLogDays: 7}
	}
}
