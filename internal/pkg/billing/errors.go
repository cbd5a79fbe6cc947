package billing

import (
	"errors"
	"fmt"
)

// Failure classes for webhook processing. Anything matched by IsNonRetryable
// is acknowledged to the provider with a 2xx so it stops redelivering;
// everything else is surfaced as a server error so the delivery is retried.
var (
	// ErrBadSignature means the payload did not verify against the shared
	// webhook secret. Rejected before any parsing or mutation.
	ErrBadSignature = errors.New("webhook signature verification failed")

	// ErrUnparseablePayload means the nested event object could not be
	// decoded. A retry delivers the same bytes, so redelivery cannot help.
	ErrUnparseablePayload = errors.New("unparseable webhook payload")

	// ErrUnknownSubscription means a non-creating event referenced a
	// subscription this system has never materialized.
	ErrUnknownSubscription = errors.New("no subscription for external reference")
)

// MissingMetadataError names the checkout metadata field a handler required
// but the event did not carry. Metadata never appears on redelivery, so these
// are acknowledged without mutation.
type MissingMetadataError struct {
	Field string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("missing required checkout metadata field %q", e.Field)
}

// IsNonRetryable reports whether err is a handled processing failure that the
// provider must not redeliver. Transient persistence and provider-query
// failures stay retryable.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var mm *MissingMetadataError
	return errors.Is(err, ErrUnparseablePayload) ||
		errors.Is(err, ErrUnknownSubscription) ||
		errors.As(err, &mm)
}
