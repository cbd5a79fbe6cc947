package billing

import (
	"context"
	"time"

	"github.com/teambase-app/TeamBase/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence gateway used by the reconciliation service.
// The two write primitives are atomic single statements; correctness under
// concurrent delivery depends on that, not on in-process locking.
type Repository interface {
	// UpsertSubscription inserts or merges a subscription row keyed by its
	// external reference. Rows in a terminal status keep their stored state.
	// The passed struct is refreshed from the stored row.
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error

	// TransitionSubscriptionStatus moves a subscription to status in a
	// single guarded statement. Status-only events carry no authority over
	// the data columns, so nothing else is written; cancelled rows and
	// absent refs match zero rows and stay untouched.
	TransitionSubscriptionStatus(ctx context.Context, externalRef, status string) error

	// InsertPaymentIfAbsent creates the payment unless a row with the same
	// external reference exists. A uniqueness conflict is success, not an
	// error; the stored row is returned either way.
	InsertPaymentIfAbsent(ctx context.Context, payment *models.Payment) (bool, *models.Payment, error)

	GetSubscriptionByID(ctx context.Context, id uint) (*models.Subscription, error)
	GetSubscriptionByExternalRef(ctx context.Context, externalRef string) (*models.Subscription, error)
	GetSubscriptionByOrganization(ctx context.Context, organizationID uint) (*models.Subscription, error)
	GetPaymentByExternalRef(ctx context.Context, externalRef string) (*models.Payment, error)

	RecordWebhookEventIfNew(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error

	GetOrganization(ctx context.Context, organizationID uint) (*models.Organization, error)
	SetOrganizationPaymentError(ctx context.Context, organizationID uint, message string) error
	FindActivePlanMapping(ctx context.Context, providerPriceRef string) (*models.PlanMapping, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// guarded yields an upsert assignment that keeps the stored column value when
// the existing row is cancelled. The status column is assigned after the
// guarded data columns (assignments are ordered by column name), so every
// guard reads the pre-update status.
func guarded(column string) clause.Expr {
	return gorm.Expr(
		"IF(status = ?, "+column+", VALUES("+column+"))",
		models.SubscriptionStatusCancelled,
	)
}

func (r *gormRepository) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_ref"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"organization_id":      guarded("organization_id"),
			"plan_id":              guarded("plan_id"),
			"amount_cents":         guarded("amount_cents"),
			"currency":             guarded("currency"),
			"current_period_start": guarded("current_period_start"),
			"current_period_end":   guarded("current_period_end"),
			"status":               guarded("status"),
			"updated_at":           gorm.Expr("VALUES(updated_at)"),
		}),
	}).Create(sub).Error
	if err != nil {
		return err
	}

	// Refresh ID and merged state after the upsert.
	return r.db.WithContext(ctx).
		Where("external_ref = ?", sub.ExternalRef).
		First(sub).Error
}

func (r *gormRepository) TransitionSubscriptionStatus(ctx context.Context, externalRef, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("external_ref = ? AND status <> ?", externalRef, models.SubscriptionStatusCancelled).
		Update("status", status).Error
}

func (r *gormRepository) InsertPaymentIfAbsent(ctx context.Context, payment *models.Payment) (bool, *models.Payment, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_ref"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Payment
	if err := r.db.WithContext(ctx).
		Where("external_ref = ?", payment.ExternalRef).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) GetSubscriptionByID(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByExternalRef(ctx context.Context, externalRef string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("external_ref = ?", externalRef).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByOrganization(ctx context.Context, organizationID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetPaymentByExternalRef(ctx context.Context, externalRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("external_ref = ?", externalRef).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) RecordWebhookEventIfNew(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider_event_id = ?", event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).
		Model(&models.BillingWebhookEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *gormRepository) GetOrganization(ctx context.Context, organizationID uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).First(&org, organizationID).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) SetOrganizationPaymentError(ctx context.Context, organizationID uint, message string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", organizationID).
		Updates(map[string]interface{}{
			"last_payment_error":    message,
			"last_payment_error_at": &now,
		}).Error
}

func (r *gormRepository) FindActivePlanMapping(ctx context.Context, providerPriceRef string) (*models.PlanMapping, error) {
	var m models.PlanMapping
	err := r.db.WithContext(ctx).
		Where("provider_price_ref = ? AND is_active = ?", providerPriceRef, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
