package models

import (
	"time"

	"gorm.io/gorm"
)

// BlogPost is an article of the public blog. Content is stored as HTML.
type BlogPost struct {
	ID            uint64                `gorm:"primaryKey" json:"id"`
	Title         string                `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=3,max=255"`
	Slug          string                `gorm:"uniqueIndex;type:varchar(255);not null" json:"slug" validate:"required,min=3,max=255"`
	Excerpt       string                `gorm:"type:text" json:"excerpt" validate:"max=1000"`
	Content       string                `gorm:"type:text;not null" json:"content" validate:"required"`
	CoverImageURL string                `gorm:"type:varchar(500)" json:"cover_image_url" validate:"omitempty,url,max=500"`
	IsPublished   bool                  `gorm:"default:false;index" json:"is_published"`
	PublishedAt   *time.Time            `gorm:"index" json:"published_at"`
	Locale        string                `gorm:"type:varchar(10);default:'en'" json:"locale"`
	AuthorID      string                `gorm:"index;type:varchar(36)" json:"author_id"`
	ViewCount     int64                 `gorm:"default:0" json:"view_count"`
	Translations  []BlogPostTranslation `gorm:"foreignKey:PostID" json:"translations,omitempty"`
	CreatedAt     time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt        `gorm:"index" json:"-"`
}

func (BlogPost) TableName() string {
	return "blog_posts"
}

// Publish flips the post to published and stamps the first publication time.
func (p *BlogPost) Publish(now time.Time) {
	p.IsPublished = true
	if p.PublishedAt == nil {
		p.PublishedAt = &now
	}
}

// Localized returns a copy of the post with title, excerpt and content taken
// from the translation for locale, if there is one.
func (p BlogPost) Localized(locale string) BlogPost {
	if locale == "" || locale == p.Locale {
		return p
	}
	for _, tr := range p.Translations {
		if tr.Locale == locale {
			p.Title = tr.Title
			p.Excerpt = tr.Excerpt
			p.Content = tr.Content
			p.Locale = tr.Locale
			return p
		}
	}
	return p
}

// BlogPostTranslation is a machine translated variant of a post.
type BlogPostTranslation struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	PostID    uint64    `gorm:"not null;index:ux_blog_post_translations_post_locale,unique,priority:1" json:"post_id"`
	Locale    string    `gorm:"type:varchar(10);not null;index:ux_blog_post_translations_post_locale,unique,priority:2" json:"locale"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	Excerpt   string    `gorm:"type:text" json:"excerpt"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BlogPostTranslation) TableName() string {
	return "blog_post_translations"
}
