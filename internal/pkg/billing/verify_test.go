package billing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teambase-app/TeamBase/app/models"
)

func TestVerifyCheckoutSession_AnswersFromLocalState(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{}
	svc := NewService(repo, provider)
	ctx := context.Background()

	// The webhook landed first.
	require.NoError(t, svc.ProcessEvent(ctx, checkoutEvent("evt_1", paidSession("cs_1"))))

	result, err := svc.VerifyCheckoutSession(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, VerifyStatusCompleted, result.Status)
	require.NotNil(t, result.Payment)
	assert.Equal(t, "cs_1", result.Payment.ExternalRef)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, "sub_ext_1", result.Subscription.ExternalRef)

	// Local state settles the question without a provider round trip.
	assert.Equal(t, 0, provider.callCount())
}

func TestVerifyCheckoutSession_PaidSessionReconciles(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{sessions: map[string]*CheckoutSession{"cs_1": paidSession("cs_1")}}
	svc := NewService(repo, provider)

	result, err := svc.VerifyCheckoutSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, VerifyStatusCompleted, result.Status)
	require.NotNil(t, result.Payment)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, 1, repo.paymentCount())
}

func TestVerifyCheckoutSession_UnpaidIsPendingWithoutMutation(t *testing.T) {
	unpaid := paidSession("cs_1")
	unpaid.PaymentStatus = "unpaid"

	repo := newFakeRepo()
	provider := &fakeProvider{sessions: map[string]*CheckoutSession{"cs_1": unpaid}}
	svc := NewService(repo, provider)
	svc.throttle = newFakeThrottle()
	ctx := context.Background()

	result, err := svc.VerifyCheckoutSession(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, VerifyStatusPending, result.Status)
	assert.Nil(t, result.Payment)
	assert.Empty(t, repo.subs)
	assert.Empty(t, repo.payments)

	// The second poll inside the throttle window never reaches the provider.
	result, err = svc.VerifyCheckoutSession(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, VerifyStatusPending, result.Status)
	assert.Equal(t, 1, provider.callCount())
}

func TestVerifyCheckoutSession_ResolvesSubscriptionOwnedByPayment(t *testing.T) {
	repo := newFakeRepo()
	oldID := uint(1)
	repo.subs["sub_old"] = &models.Subscription{ID: 1, OrganizationID: 42, ExternalRef: "sub_old", Status: models.SubscriptionStatusCancelled}
	repo.subs["sub_new"] = &models.Subscription{ID: 2, OrganizationID: 42, ExternalRef: "sub_new", Status: models.SubscriptionStatusActive}
	repo.payments["cs_old"] = &models.Payment{
		ID:             1,
		OrganizationID: 42,
		ExternalRef:    "cs_old",
		SubscriptionID: &oldID,
		Status:         models.PaymentStatusSucceeded,
	}
	svc := NewService(repo, &fakeProvider{})

	// The payment names its owning subscription; the org's newer row must
	// not shadow it.
	result, err := svc.VerifyCheckoutSession(context.Background(), "cs_old")
	require.NoError(t, err)
	assert.Equal(t, VerifyStatusCompleted, result.Status)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, "sub_old", result.Subscription.ExternalRef)
}

func TestVerifyCheckoutSession_ProviderErrorSurfaces(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{err: errors.New("provider query failed: connection refused")}
	svc := NewService(repo, provider)

	_, err := svc.VerifyCheckoutSession(context.Background(), "cs_1")
	require.Error(t, err)
	assert.Empty(t, repo.payments)
}

func TestVerifyCheckoutSession_EmptySessionID(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{})

	_, err := svc.VerifyCheckoutSession(context.Background(), "  ")
	require.Error(t, err)
}

func TestVerifyCheckoutSession_RacesWebhookToOnePayment(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{sessions: map[string]*CheckoutSession{"cs_1": paidSession("cs_1")}}
	svc := NewService(repo, provider)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- svc.ProcessEvent(ctx, checkoutEvent("evt_1", paidSession("cs_1")))
		}()
		go func() {
			defer wg.Done()
			_, err := svc.VerifyCheckoutSession(ctx, "cs_1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// Whoever loses the insert race treats the conflict as confirmation.
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.paymentCount())
	assert.Len(t, repo.subs, 1)
}
