package constants

// Static route constants
const (
	BillingWebhookRoute = "/billing/webhook"
	BillingVerifyRoute  = "/billing/verify/:session_id"
	BillingOrgSubRoute  = "/billing/organizations/:id/subscription"
	BillingStatsRoute   = "/billing/stats"
)
