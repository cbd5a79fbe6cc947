package models

import "time"

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPastDue   = "past_due"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription mirrors provider-reported subscription state for one
// organization. ExternalRef is the provider subscription id, or the
// payment-intent id for one-shot checkout flows; its unique index is what
// makes the reconciliation upsert safe under concurrent delivery.
type Subscription struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	OrganizationID     uint       `gorm:"not null;index" json:"organization_id"`
	ExternalRef        string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscriptions_external_ref" json:"external_ref"`
	PlanID             string     `gorm:"type:varchar(50);not null;default:'free'" json:"plan_id"`
	Status             string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	AmountCents        int64      `gorm:"not null;default:0" json:"amount_cents"`
	Currency           string     `gorm:"type:varchar(8);not null;default:''" json:"currency"`
	CurrentPeriodStart *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether no further status transition is permitted.
// Cancelled rows are kept forever; reactivation happens through a fresh
// checkout that creates a new subscription identity.
func (s *Subscription) IsTerminal() bool {
	return s.Status == SubscriptionStatusCancelled
}
