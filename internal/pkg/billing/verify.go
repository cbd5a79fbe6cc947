package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/teambase-app/TeamBase/app/models"
	"gorm.io/gorm"
)

// VerifyStatus is the only outcome surface of the fallback verifier: a
// session is either still pending or fully materialized. Downstream failures
// surface as errors, never as a third state.
type VerifyStatus string

const (
	VerifyStatusPending   VerifyStatus = "pending"
	VerifyStatusCompleted VerifyStatus = "completed"
)

// VerifyResult is returned to the client polling after checkout.
type VerifyResult struct {
	Status       VerifyStatus         `json:"status"`
	Payment      *models.Payment      `json:"payment,omitempty"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// VerifyCheckoutSession reconciles a checkout session synchronously, for
// clients returning from checkout before the webhook has arrived. When the
// provider reports the session paid it runs the identical reconciliation
// primitives as the webhook path; the payment insert treats a conflict with
// a concurrent webhook delivery as confirmation.
func (s *Service) VerifyCheckoutSession(ctx context.Context, sessionID string) (*VerifyResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	// Webhook already materialized the payment: answer from local state.
	payment, err := s.repo.GetPaymentByExternalRef(ctx, sessionID)
	if err == nil {
		return s.completedResult(ctx, payment), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if s.throttle != nil && s.throttle.RecentlyPending(ctx, sessionID) {
		return &VerifyResult{Status: VerifyStatusPending}, nil
	}

	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Paid() {
		if s.throttle != nil {
			s.throttle.MarkPending(ctx, sessionID)
		}
		return &VerifyResult{Status: VerifyStatusPending}, nil
	}

	reconciled, sub, err := s.reconcileCheckout(ctx, session)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		Status:       VerifyStatusCompleted,
		Payment:      reconciled,
		Subscription: sub,
	}, nil
}

func (s *Service) completedResult(ctx context.Context, payment *models.Payment) *VerifyResult {
	result := &VerifyResult{Status: VerifyStatusCompleted, Payment: payment}
	if payment.SubscriptionID != nil {
		if sub, err := s.repo.GetSubscriptionByID(ctx, *payment.SubscriptionID); err == nil {
			result.Subscription = sub
			return result
		}
	}
	if sub, err := s.repo.GetSubscriptionByOrganization(ctx, payment.OrganizationID); err == nil {
		result.Subscription = sub
	}
	return result
}
