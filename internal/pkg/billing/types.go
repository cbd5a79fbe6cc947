package billing

import (
	"encoding/json"
	"time"
)

// EventKind is the provider event type tag. Only the kinds below are acted
// on; everything else is acknowledged and dropped.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventPaymentFailed       EventKind = "payment_intent.payment_failed"
	EventInvoicePaid         EventKind = "invoice.payment_succeeded"
	EventInvoiceFailed       EventKind = "invoice.payment_failed"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
)

// ProviderEvent is the typed envelope produced by the parser. Exactly one of
// the object pointers is set, matching Kind; unknown kinds carry none.
type ProviderEvent struct {
	ID         string
	Kind       EventKind
	OccurredAt time.Time

	Checkout      *CheckoutSession
	PaymentIntent *PaymentIntent
	Invoice       *Invoice
	Subscription  *ProviderSubscription

	Raw json.RawMessage
}

// CheckoutSession is the subset of the provider's checkout session object the
// reconciler reads. The same shape is returned by the query API, so webhook
// payloads and fallback-verifier lookups flow through identical code. The
// payment_intent and subscription references arrive unexpanded (plain ids).
type CheckoutSession struct {
	ID                 string            `json:"id"`
	PaymentStatus      string            `json:"payment_status"`
	AmountTotal        int64             `json:"amount_total"`
	Currency           string            `json:"currency"`
	PaymentIntent      string            `json:"payment_intent"`
	Subscription       string            `json:"subscription"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	Metadata           map[string]string `json:"metadata"`
}

// Paid reports whether the provider considers this session settled.
func (cs *CheckoutSession) Paid() bool {
	return cs.PaymentStatus == "paid"
}

// PaymentIntent carries the fields read from payment_intent.payment_failed.
type PaymentIntent struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// Invoice carries the fields read from invoice.payment_succeeded and
// invoice.payment_failed.
type Invoice struct {
	ID            string `json:"id"`
	Subscription  string `json:"subscription"`
	PaymentIntent string `json:"payment_intent"`
	AmountPaid    int64  `json:"amount_paid"`
	AmountDue     int64  `json:"amount_due"`
	Currency      string `json:"currency"`
	PeriodStart   int64  `json:"period_start"`
	PeriodEnd     int64  `json:"period_end"`
	Lines         struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"lines"`
}

// PriceRef returns the first line item's price id, or "".
func (inv *Invoice) PriceRef() string {
	if len(inv.Lines.Data) == 0 {
		return ""
	}
	return inv.Lines.Data[0].Price.ID
}

// ProviderSubscription carries the fields read from
// customer.subscription.deleted and from the subscription query API.
type ProviderSubscription struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Customer           string            `json:"customer"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount int64  `json:"unit_amount"`
				Currency   string `json:"currency"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// PriceRef returns the first item's price id, or "".
func (ps *ProviderSubscription) PriceRef() string {
	if len(ps.Items.Data) == 0 {
		return ""
	}
	return ps.Items.Data[0].Price.ID
}
