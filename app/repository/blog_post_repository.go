package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

// blogPostRepository implements the BlogPostRepository interface
type blogPostRepository struct {
	db *gorm.DB
}

// NewBlogPostRepository creates a new blog post repository instance
func NewBlogPostRepository(db *gorm.DB) BlogPostRepository {
	return &blogPostRepository{db: db}
}

// Create creates a new blog post in the database
func (r *blogPostRepository) Create(post *models.BlogPost) error {
	return r.db.Create(post).Error
}

// GetByID retrieves a blog post by its ID
func (r *blogPostRepository) GetByID(id uint64) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.Preload("Translations").First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetBySlug retrieves a published blog post by its slug
func (r *blogPostRepository) GetBySlug(slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.Preload("Translations").Where("slug = ? AND is_published = ?", slug, true).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPublished retrieves published posts, newest first
func (r *blogPostRepository) GetPublished(offset, limit int) ([]models.BlogPost, error) {
	var posts []models.BlogPost
	err := r.db.Preload("Translations").Where("is_published = ?", true).
		Order("published_at DESC, id DESC").Offset(offset).Limit(limit).Find(&posts).Error
	return posts, err
}

// CountPublished returns the number of published posts
func (r *blogPostRepository) CountPublished() (int64, error) {
	var count int64
	err := r.db.Model(&models.BlogPost{}).Where("is_published = ?", true).Count(&count).Error
	return count, err
}

// GetAll retrieves all blog posts with pagination
func (r *blogPostRepository) GetAll(offset, limit int) ([]models.BlogPost, error) {
	var posts []models.BlogPost
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&posts).Error
	return posts, err
}

// Update updates an existing blog post in the database
func (r *blogPostRepository) Update(post *models.BlogPost) error {
	return r.db.Omit("Translations").Save(post).Error
}

// Delete soft deletes a blog post by its ID
func (r *blogPostRepository) Delete(id uint64) error {
	return r.db.Delete(&models.BlogPost{}, id).Error
}

// SlugExists checks if a slug already exists
func (r *blogPostRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&models.BlogPost{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// SlugExistsExceptID checks if a slug exists excluding a specific ID
func (r *blogPostRepository) SlugExistsExceptID(slug string, id uint64) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&models.BlogPost{}).Where("slug = ? AND id != ?", slug, id).Count(&count).Error
	return count > 0, err
}

// UpsertTranslation stores or replaces the translation for (post, locale).
func (r *blogPostRepository) UpsertTranslation(tr *models.BlogPostTranslation) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "locale"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "excerpt", "content", "updated_at"}),
	}).Create(tr).Error
}
