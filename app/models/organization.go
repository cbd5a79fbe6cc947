package models

import "time"

// Organization is the tenant that owns subscriptions and payments. Onboarding,
// membership and invitation flows live in other services; billing only needs
// the identity row plus the last payment failure recorded for operator
// visibility.
type Organization struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Name               string     `gorm:"type:varchar(200);not null" json:"name"`
	BillingEmail       string     `gorm:"type:varchar(200);default:''" json:"billing_email"`
	ProviderCustomerID string     `gorm:"type:varchar(191);default:'';index" json:"provider_customer_id"`
	LastPaymentError   string     `gorm:"type:text" json:"last_payment_error"`
	LastPaymentErrorAt *time.Time `gorm:"type:timestamp;default:null" json:"last_payment_error_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
