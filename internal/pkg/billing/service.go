package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambase-app/TeamBase/app/models"
	"github.com/teambase-app/TeamBase/internal/pkg/cache"
	"gorm.io/gorm"
)

// Service is the reconciliation core. Both the asynchronous webhook path and
// the synchronous fallback verifier converge on its primitives, so the two
// paths cannot diverge in outcome.
type Service struct {
	repo     Repository
	provider ProviderClient
	throttle SessionThrottle
	notifier Notifier
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, provider ProviderClient) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a billing service from a GORM DB handle, with the
// redis-backed verify throttle attached.
func NewServiceFromDB(db *gorm.DB, provider ProviderClient) *Service {
	svc := NewService(NewRepository(db), provider)
	svc.throttle = NewRedisSessionThrottle(cache.GetClient())
	svc.notifier = NewMailNotifier()
	return svc
}

// ProcessEvent routes one parsed provider event to its handler. Unknown
// kinds are logged and acknowledged without mutation so the provider stops
// redelivering events this system intentionally does not act on.
func (s *Service) ProcessEvent(ctx context.Context, ev *ProviderEvent) error {
	switch ev.Kind {
	case EventCheckoutCompleted:
		_, _, err := s.reconcileCheckout(ctx, ev.Checkout)
		return err
	case EventPaymentFailed:
		return s.handlePaymentFailed(ctx, ev.PaymentIntent)
	case EventInvoicePaid:
		return s.handleInvoicePaid(ctx, ev.Invoice)
	case EventInvoiceFailed:
		return s.handleInvoiceFailed(ctx, ev.Invoice)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, ev.Subscription)
	default:
		log.Printf("billing: ignoring webhook event kind %q (id=%s)", ev.Kind, ev.ID)
		return nil
	}
}

// reconcileCheckout materializes the subscription and payment for one paid
// checkout session. Shared by the webhook handler and the fallback verifier;
// safe to invoke any number of times and from both paths concurrently.
func (s *Service) reconcileCheckout(ctx context.Context, session *CheckoutSession) (*models.Payment, *models.Subscription, error) {
	meta, err := ParseCheckoutMetadata(session.Metadata)
	if err != nil {
		return nil, nil, err
	}

	// Subscription identity: provider subscription ref, falling back to the
	// payment-intent ref for one-shot flows without a recurring component.
	externalRef := session.Subscription
	if externalRef == "" {
		externalRef = session.PaymentIntent
	}
	if externalRef == "" {
		externalRef = session.ID
	}

	sub := &models.Subscription{
		OrganizationID: meta.OrganizationID,
		ExternalRef:    externalRef,
		PlanID:         meta.PlanID,
		Status:         models.SubscriptionStatusActive,
		AmountCents:    session.AmountTotal,
		Currency:       session.Currency,
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, nil, err
	}

	payment := &models.Payment{
		PublicID:       uuid.NewString(),
		SubscriptionID: &sub.ID,
		OrganizationID: meta.OrganizationID,
		ExternalRef:    session.ID,
		AmountCents:    session.AmountTotal,
		Currency:       session.Currency,
		Status:         models.PaymentStatusSucceeded,
		PaymentMethod:  firstPaymentMethod(session.PaymentMethodTypes),
	}
	created, stored, err := s.repo.InsertPaymentIfAbsent(ctx, payment)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		// Duplicate delivery or the other path won the insert race. The
		// conflict is confirmation, not failure.
		log.Printf("billing: payment for session %s already recorded", session.ID)
	}
	return stored, sub, nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, intent *PaymentIntent) error {
	meta, err := ParseFailureMetadata(intent.Metadata)
	if err != nil {
		return err
	}

	message := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Message != "" {
		message = intent.LastPaymentError.Message
	}
	if err := s.repo.SetOrganizationPaymentError(ctx, meta.OrganizationID, message); err != nil {
		return err
	}
	s.notifyPaymentFailure(ctx, meta.OrganizationID, message)
	log.Printf("billing: recorded payment failure for organization %d (intent=%s)", meta.OrganizationID, intent.ID)
	return nil
}

func (s *Service) handleInvoicePaid(ctx context.Context, invoice *Invoice) error {
	sub, err := s.subscriptionForInvoice(ctx, invoice)
	if err != nil {
		return err
	}

	payment := &models.Payment{
		PublicID:       uuid.NewString(),
		SubscriptionID: &sub.ID,
		OrganizationID: sub.OrganizationID,
		ExternalRef:    invoicePaymentRef(invoice),
		AmountCents:    invoice.AmountPaid,
		Currency:       invoice.Currency,
		Status:         models.PaymentStatusSucceeded,
	}
	if _, _, err := s.repo.InsertPaymentIfAbsent(ctx, payment); err != nil {
		return err
	}

	merged := *sub
	merged.Status = models.SubscriptionStatusActive
	merged.AmountCents = invoice.AmountPaid
	merged.CurrentPeriodStart = unixTime(invoice.PeriodStart)
	merged.CurrentPeriodEnd = unixTime(invoice.PeriodEnd)
	if plan := s.resolvePlanForPrice(ctx, invoice.PriceRef()); plan != "" {
		merged.PlanID = plan
	}
	return s.repo.UpsertSubscription(ctx, &merged)
}

func (s *Service) handleInvoiceFailed(ctx context.Context, invoice *Invoice) error {
	sub, err := s.subscriptionForInvoice(ctx, invoice)
	if err != nil {
		return err
	}

	// A failure notice that arrives after the matching payment already
	// succeeded is stale; skipping it keeps the failed/succeeded pair
	// order-independent.
	if payment, err := s.repo.GetPaymentByExternalRef(ctx, invoicePaymentRef(invoice)); err == nil {
		if payment.Status == models.PaymentStatusSucceeded {
			log.Printf("billing: ignoring stale invoice failure for %s", invoice.ID)
			return nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// A failure event is authoritative for the status column only. The
	// guarded single-statement transition cannot clobber period bounds or
	// amounts a concurrent renewal writes on another connection.
	if err := s.repo.TransitionSubscriptionStatus(ctx, invoice.Subscription, models.SubscriptionStatusPastDue); err != nil {
		return err
	}
	s.notifyPaymentFailure(ctx, sub.OrganizationID, fmt.Sprintf("invoice %s could not be collected", invoice.ID))
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, provider *ProviderSubscription) error {
	if _, err := s.repo.GetSubscriptionByExternalRef(ctx, provider.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownSubscription, provider.ID)
		}
		return err
	}

	// Status-only write; billing data columns keep whatever the last
	// renewal recorded.
	return s.repo.TransitionSubscriptionStatus(ctx, provider.ID, models.SubscriptionStatusCancelled)
}

// subscriptionForInvoice resolves the local subscription an invoice event
// refers to. Invoices for subscriptions this system never materialized are a
// handled error, acknowledged without mutation.
func (s *Service) subscriptionForInvoice(ctx context.Context, invoice *Invoice) (*models.Subscription, error) {
	if invoice.Subscription == "" {
		return nil, fmt.Errorf("%w: invoice %s carries no subscription reference", ErrUnknownSubscription, invoice.ID)
	}
	sub, err := s.repo.GetSubscriptionByExternalRef(ctx, invoice.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSubscription, invoice.Subscription)
		}
		return nil, err
	}
	return sub, nil
}

func (s *Service) resolvePlanForPrice(ctx context.Context, priceRef string) string {
	if priceRef == "" {
		return ""
	}
	mapping, err := s.repo.FindActivePlanMapping(ctx, priceRef)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: plan mapping lookup failed for %s: %v", priceRef, err)
		}
		return ""
	}
	return normalizePlan(mapping.InternalPlan)
}

// RecordWebhookEvent persists a webhook delivery idempotently, keyed by the
// provider event id (or a payload hash when the provider sent none).
func (s *Service) RecordWebhookEvent(ctx context.Context, providerEventID, eventType string, payload []byte) (bool, *models.BillingWebhookEvent, error) {
	eventID := strings.TrimSpace(providerEventID)
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(eventType),
		PayloadJSON:     string(payload),
	}
	return s.repo.RecordWebhookEventIfNew(ctx, event)
}

// MarkWebhookProcessed marks a delivery as processed, storing the processing
// error if there was one.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}

// OrganizationSubscription returns the most recent subscription for an
// organization, or gorm.ErrRecordNotFound.
func (s *Service) OrganizationSubscription(ctx context.Context, organizationID uint) (*models.Subscription, error) {
	if organizationID == 0 {
		return nil, errors.New("organization_id is required")
	}
	return s.repo.GetSubscriptionByOrganization(ctx, organizationID)
}

// notifyPaymentFailure emails the organization's billing address, best
// effort. Notification failures never affect webhook processing.
func (s *Service) notifyPaymentFailure(ctx context.Context, organizationID uint, message string) {
	if s.notifier == nil {
		return
	}
	org, err := s.repo.GetOrganization(ctx, organizationID)
	if err != nil {
		log.Printf("billing: organization %d lookup for failure notice failed: %v", organizationID, err)
		return
	}
	s.notifier.PaymentFailed(org, message)
}

func invoicePaymentRef(invoice *Invoice) string {
	if invoice.PaymentIntent != "" {
		return invoice.PaymentIntent
	}
	return invoice.ID
}

func firstPaymentMethod(types []string) string {
	if len(types) == 0 {
		return ""
	}
	return types[0]
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0)
	return &t
}
