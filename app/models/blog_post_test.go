package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlogPostLocalized(t *testing.T) {
	post := BlogPost{
		Title:   "Hello",
		Excerpt: "Short",
		Content: "<p>Body</p>",
		Locale:  "en",
		Translations: []BlogPostTranslation{
			{Locale: "de", Title: "Hallo", Excerpt: "Kurz", Content: "<p>Text</p>"},
		},
	}

	de := post.Localized("de")
	assert.Equal(t, "Hallo", de.Title)
	assert.Equal(t, "de", de.Locale)
	assert.Equal(t, "Hello", post.Title, "original must stay untouched")

	assert.Equal(t, "Hello", post.Localized("fr").Title)
	assert.Equal(t, "Hello", post.Localized("").Title)
}

func TestBlogPostPublishKeepsFirstTimestamp(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	post := BlogPost{}
	post.Publish(first)
	post.Publish(first.Add(time.Hour))

	assert.True(t, post.IsPublished)
	assert.Equal(t, first, *post.PublishedAt)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ada", (&User{Name: "Ada", Email: "ada@example.com"}).DisplayName())
	assert.Equal(t, "grace", (&User{Email: "grace@example.com"}).DisplayName())
	assert.True(t, (&User{Role: ROLE_ADMIN}).IsAdmin())
	assert.False(t, (*User)(nil).IsAdmin())
}
