package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

// sortColumns whitelists the orderable columns of the dashboard list.
var sortColumns = map[string]string{
	"name":         "name",
	"amount":       "amount_cents",
	"next_payment": "next_payment_date",
	"created":      "created_at",
}

type trackedSubscriptionRepository struct {
	db *gorm.DB
}

func NewTrackedSubscriptionRepository(db *gorm.DB) TrackedSubscriptionRepository {
	return &trackedSubscriptionRepository{db: db}
}

func (r *trackedSubscriptionRepository) Create(sub *models.TrackedSubscription) error {
	return r.db.Create(sub).Error
}

func (r *trackedSubscriptionRepository) GetForUser(id uint64, userID string) (*models.TrackedSubscription, error) {
	var sub models.TrackedSubscription
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *trackedSubscriptionRepository) ListForUser(userID string, f ListFilter) ([]models.TrackedSubscription, error) {
	q := r.db.Where("user_id = ?", userID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	col, ok := sortColumns[f.Sort]
	if !ok {
		col = sortColumns["next_payment"]
	}
	dir := " ASC"
	if f.Desc {
		dir = " DESC"
	}

	var subs []models.TrackedSubscription
	err := q.Order(col + dir).Order("id ASC").Find(&subs).Error
	return subs, err
}

func (r *trackedSubscriptionRepository) CountForUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.TrackedSubscription{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *trackedSubscriptionRepository) Update(sub *models.TrackedSubscription) error {
	return r.db.Save(sub).Error
}

// DeleteForUser reports false when nothing owned by userID matched.
func (r *trackedSubscriptionRepository) DeleteForUser(id uint64, userID string) (bool, error) {
	tx := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.TrackedSubscription{})
	return tx.RowsAffected > 0, tx.Error
}

// ListActiveDueBefore returns active subscriptions whose next payment is before the cutoff.
func (r *trackedSubscriptionRepository) ListActiveDueBefore(before time.Time) ([]models.TrackedSubscription, error) {
	var subs []models.TrackedSubscription
	err := r.db.Where("is_active = ? AND next_payment_date < ?", true, before).Order("id ASC").Find(&subs).Error
	return subs, err
}

func (r *trackedSubscriptionRepository) ListActiveForUsers(userIDs []string) ([]models.TrackedSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var subs []models.TrackedSubscription
	err := r.db.Where("is_active = ? AND user_id IN ?", true, userIDs).Order("next_payment_date ASC").Find(&subs).Error
	return subs, err
}

func (r *trackedSubscriptionRepository) MarkReminded(id uint64, at time.Time) error {
	return r.db.Model(&models.TrackedSubscription{}).Where("id = ?", id).Update("last_reminded_at", at).Error
}
