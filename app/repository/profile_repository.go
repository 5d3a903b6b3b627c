package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetByUserID returns gorm.ErrRecordNotFound for users without a profile.
func (r *profileRepository) GetByUserID(userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Ensure creates a free profile for the user unless one exists.
func (r *profileRepository) Ensure(ctx context.Context, userID string) (*models.Profile, error) {
	db := r.db.WithContext(ctx)
	p := models.Profile{UserID: userID, Plan: models.PlanFree}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, err
	}
	var stored models.Profile
	if err := db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *profileRepository) ListProUserIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&models.Profile{}).Where("plan = ?", models.PlanPro).Pluck("user_id", &ids).Error
	return ids, err
}
