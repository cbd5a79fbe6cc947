package models

import "time"

// PlanMapping maps a provider price reference to an internal plan id, so that
// invoice and subscription events can resolve the plan without relying on
// checkout metadata being present.
type PlanMapping struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProviderPriceRef string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_plan_mappings_price_ref" json:"provider_price_ref"`
	InternalPlan     string    `gorm:"type:varchar(50);not null;default:'free';index" json:"internal_plan"`
	IsActive         bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
