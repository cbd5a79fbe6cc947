package controllers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/teambase-app/TeamBase/internal/pkg/billing"
	"github.com/teambase-app/TeamBase/internal/pkg/database"
	"github.com/teambase-app/TeamBase/internal/pkg/entitlements"
	"github.com/teambase-app/TeamBase/internal/pkg/env"
	"github.com/teambase-app/TeamBase/internal/pkg/metrics/counter"
)

const (
	webhookTimeout = 15 * time.Second
	verifyTimeout  = 20 * time.Second
)

// HandleBillingWebhook ingests one provider webhook delivery. The body must
// stay the exact raw byte sequence the provider signed; Fiber never parses
// it. Response codes follow the retry contract: 2xx for anything that must
// not be redelivered, non-2xx for signature failures and transient errors.
func HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	event, err := billing.VerifyEvent(rawBody, signature, secret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	svc := billing.NewServiceFromDB(database.GetDB(), billing.NewStripeClientFromEnv())
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, event.ID, string(event.Type), rawBody)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created && stored.ProcessedCleanly() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	parsed, parseErr := billing.ParseEvent(event)
	if parseErr != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, parseErr)
		_ = counter.AddEventIgnored(string(event.Type))
		log.Printf("billing webhook: %v", parseErr)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	procErr := svc.ProcessEvent(ctx, parsed)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, procErr)
	if procErr != nil {
		if billing.IsNonRetryable(procErr) {
			_ = counter.AddEventIgnored(string(event.Type))
			log.Printf("billing webhook: event %s not actionable: %v", event.ID, procErr)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
		}
		_ = counter.AddEventFailed(string(event.Type))
		log.Printf("billing webhook: event %s failed, requesting redelivery: %v", event.ID, procErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconciliation_failed"})
	}

	_ = counter.AddEventProcessed(string(event.Type))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleBillingVerify is the synchronous fallback path for clients returning
// from checkout before the webhook has landed. It answers only "pending" or
// "completed"; downstream failures map to 503 so the client polls again.
func HandleBillingVerify(c *fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Params("session_id"))
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_id_required"})
	}

	svc := billing.NewServiceFromDB(database.GetDB(), billing.NewStripeClientFromEnv())
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	result, err := svc.VerifyCheckoutSession(ctx, sessionID)
	if err != nil {
		log.Printf("billing verify: session %s: %v", sessionID, err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "verification_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleOrganizationSubscription returns the current subscription summary
// for an organization, for dashboard polling.
func HandleOrganizationSubscription(c *fiber.Ctx) error {
	orgID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || orgID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_organization_id"})
	}

	svc := billing.NewServiceFromDB(database.GetDB(), billing.NewStripeClientFromEnv())
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	sub, err := svc.OrganizationSubscription(ctx, uint(orgID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_subscription"})
		}
		log.Printf("billing: subscription lookup for organization %d failed: %v", orgID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"subscription": sub,
		"entitlements": entitlements.ForPlan(sub.PlanID),
	})
}

// HandleBillingStats reports the webhook processing counters, for operators.
func HandleBillingStats(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	processed, failed, ignored, err := counter.Snapshot(ctx)
	if err != nil {
		log.Printf("billing: counter snapshot failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_unavailable"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"processed": processed,
		"failed":    failed,
		"ignored":   ignored,
	})
}
