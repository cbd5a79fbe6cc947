package models

import "time"

// BillingWebhookEvent stores provider webhook deliveries with deduplication
// metadata. The unique index on ProviderEventID lets duplicate deliveries be
// detected with a single idempotent insert.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_webhook_events_event" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProcessedCleanly reports whether this delivery already completed without a
// processing error. Redeliveries of such events are acknowledged without
// reprocessing; failed ones are retried.
func (e *BillingWebhookEvent) ProcessedCleanly() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}
