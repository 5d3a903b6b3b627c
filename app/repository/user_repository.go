package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByProvider resolves a linked OAuth identity to its user.
func (r *userRepository) GetByProvider(provider, providerUserID string) (*models.User, error) {
	var pa models.ProviderAccount
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&pa).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(pa.UserID)
}

// LinkProvider records an OAuth identity for a user. Linking twice is a no-op.
func (r *userRepository) LinkProvider(userID, provider, providerUserID string) error {
	pa := models.ProviderAccount{UserID: userID, Provider: provider, ProviderUserID: providerUserID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pa).Error
}

// EnsureUser returns the user with in.ID (or, without an id, in.Email),
// creating it when missing. The bool reports whether a row was created.
func (r *userRepository) EnsureUser(ctx context.Context, in EnsureUserInput) (*models.User, bool, error) {
	db := r.db.WithContext(ctx)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var user models.User
	var err error
	if in.ID != "" {
		err = db.Where("id = ?", in.ID).First(&user).Error
	} else if email != "" {
		err = db.Where("email = ?", email).First(&user).Error
	} else {
		return nil, false, errors.New("user id or email required")
	}
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user = models.User{ID: in.ID, Email: email, Name: in.Name, AvatarURL: in.AvatarURL}
	tx := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
	if tx.Error != nil {
		return nil, false, tx.Error
	}
	if tx.RowsAffected == 0 {
		// lost a race with a concurrent sign-in
		var existing models.User
		if err := db.Where("id = ? OR email = ?", user.ID, email).First(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	return &user, true, nil
}

// TouchLastLogin stamps the login time.
func (r *userRepository) TouchLastLogin(id string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", time.Now()).Error
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
