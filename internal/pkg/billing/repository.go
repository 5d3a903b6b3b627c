package billing

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	// UpdateProfileByUserID and UpdateProfileByCustomerID apply an update to
	// the matching profile. Zero matching rows is not an error.
	UpdateProfileByUserID(ctx context.Context, userID string, u ProfileUpdate) error
	UpdateProfileByCustomerID(ctx context.Context, customerID string, u ProfileUpdate) error
	CustomerIDForUser(ctx context.Context, userID string) (string, error)
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// columns turns an update into a gorm column map. The customer id is only
// taken when the stored one is still NULL.
func (u ProfileUpdate) columns() map[string]interface{} {
	cols := map[string]interface{}{"updated_at": time.Now()}
	if u.BillingCustomerID != nil {
		cols["billing_customer_id"] = gorm.Expr("COALESCE(billing_customer_id, ?)", *u.BillingCustomerID)
	}
	if u.Plan != nil {
		cols["plan"] = *u.Plan
	}
	if u.SubscriptionStatus != nil {
		cols["subscription_status"] = *u.SubscriptionStatus
	}
	if u.CurrentPeriodEnd != nil {
		cols["current_period_end"] = *u.CurrentPeriodEnd
	} else if u.ClearPeriodEnd {
		cols["current_period_end"] = nil
	}
	return cols
}

func (r *gormRepository) UpdateProfileByUserID(ctx context.Context, userID string, u ProfileUpdate) error {
	tx := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Updates(u.columns())
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		log.Warnf("[Billing] no profile for user %s, update skipped", userID)
	}
	return nil
}

func (r *gormRepository) UpdateProfileByCustomerID(ctx context.Context, customerID string, u ProfileUpdate) error {
	tx := r.db.WithContext(ctx).Model(&models.Profile{}).Where("billing_customer_id = ?", customerID).Updates(u.columns())
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		log.Warnf("[Billing] no profile for customer %s, update skipped", customerID)
	}
	return nil
}

// CustomerIDForUser returns the stored customer id or "" when there is none.
func (r *gormRepository) CustomerIDForUser(ctx context.Context, userID string) (string, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&profiles).Error
	if err != nil || len(profiles) == 0 || profiles[0].BillingCustomerID == nil {
		return "", err
	}
	return *profiles[0].BillingCustomerID, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
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
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
