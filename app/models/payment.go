package models

import "time"

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusPending   = "pending"
)

// Payment records one settled charge. ExternalRef holds exactly one provider
// identifier (checkout-session id or payment-intent id) and carries the
// unique index that deduplicates concurrent webhook and verify-path writers.
// Rows are created once and never mutated afterwards.
type Payment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PublicID       string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"public_id"`
	SubscriptionID *uint     `gorm:"index" json:"subscription_id,omitempty"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	ExternalRef    string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_payments_external_ref" json:"external_ref"`
	AmountCents    int64     `gorm:"not null;default:0" json:"amount_cents"`
	Currency       string    `gorm:"type:varchar(8);not null;default:''" json:"currency"`
	Status         string    `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	PaymentMethod  string    `gorm:"type:varchar(32);default:''" json:"payment_method"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
