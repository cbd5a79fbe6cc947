package billing

import (
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// VerifyEvent authenticates payload against the shared webhook secret. It
// must be handed the exact byte sequence the provider sent; any prior
// parsing or re-serialization breaks the signature. On failure the caller
// rejects the delivery without touching the payload further.
func VerifyEvent(payload []byte, signatureHeader, secret string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return &event, nil
}

// ParseEvent decodes a verified event into the typed envelope. A malformed
// nested object yields ErrUnparseablePayload: the delivery is acknowledged,
// because the provider would retry the same bytes forever. Unknown kinds
// parse successfully with no object attached and are dropped by the router.
func ParseEvent(event *stripe.Event) (*ProviderEvent, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s carries no data object", ErrUnparseablePayload, event.ID)
	}

	pe := &ProviderEvent{
		ID:         event.ID,
		Kind:       EventKind(event.Type),
		OccurredAt: time.Unix(event.Created, 0),
		Raw:        event.Data.Raw,
	}

	var err error
	switch pe.Kind {
	case EventCheckoutCompleted:
		pe.Checkout = &CheckoutSession{}
		err = json.Unmarshal(event.Data.Raw, pe.Checkout)
	case EventPaymentFailed:
		pe.PaymentIntent = &PaymentIntent{}
		err = json.Unmarshal(event.Data.Raw, pe.PaymentIntent)
	case EventInvoicePaid, EventInvoiceFailed:
		pe.Invoice = &Invoice{}
		err = json.Unmarshal(event.Data.Raw, pe.Invoice)
	case EventSubscriptionDeleted:
		pe.Subscription = &ProviderSubscription{}
		err = json.Unmarshal(event.Data.Raw, pe.Subscription)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnparseablePayload, event.Type, err)
	}
	return pe, nil
}
