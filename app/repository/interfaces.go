package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByProvider(provider, providerUserID string) (*models.User, error)
	LinkProvider(userID, provider, providerUserID string) error
	EnsureUser(ctx context.Context, in EnsureUserInput) (*models.User, bool, error)
	TouchLastLogin(id string) error
	Update(user *models.User) error
	Count() (int64, error)
}

// ProfileRepository defines the billing profile lookups used outside the reconciler
type ProfileRepository interface {
	GetByUserID(userID string) (*models.Profile, error)
	Ensure(ctx context.Context, userID string) (*models.Profile, error)
	ListProUserIDs() ([]string, error)
}

// BlogPostRepository defines the interface for blog post operations
type BlogPostRepository interface {
	Create(post *models.BlogPost) error
	GetByID(id uint64) (*models.BlogPost, error)
	GetBySlug(slug string) (*models.BlogPost, error)
	GetPublished(offset, limit int) ([]models.BlogPost, error)
	CountPublished() (int64, error)
	GetAll(offset, limit int) ([]models.BlogPost, error)
	Update(post *models.BlogPost) error
	Delete(id uint64) error
	SlugExists(slug string) (bool, error)
	SlugExistsExceptID(slug string, id uint64) (bool, error)
	UpsertTranslation(tr *models.BlogPostTranslation) error
}

// TrackedSubscriptionRepository defines the dashboard subscription operations.
// Every lookup is scoped to the owning user.
type TrackedSubscriptionRepository interface {
	Create(sub *models.TrackedSubscription) error
	GetForUser(id uint64, userID string) (*models.TrackedSubscription, error)
	ListForUser(userID string, filter ListFilter) ([]models.TrackedSubscription, error)
	CountForUser(userID string) (int64, error)
	Update(sub *models.TrackedSubscription) error
	DeleteForUser(id uint64, userID string) (bool, error)
	ListActiveDueBefore(before time.Time) ([]models.TrackedSubscription, error)
	ListActiveForUsers(userIDs []string) ([]models.TrackedSubscription, error)
	MarkReminded(id uint64, at time.Time) error
}

// QueueRepository defines the interface for cache/queue operations
type QueueRepository interface {
	FindKeys(ctx context.Context, patterns []string) ([]string, error)
	Inspect(ctx context.Context, key string) (*KeyInfo, error)
	DeleteKeys(ctx context.Context, keys []string) (int64, error)
}

// EnsureUserInput identifies a user coming from an identity provider.
type EnsureUserInput struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// ListFilter narrows and orders the dashboard list.
type ListFilter struct {
	Category string
	Query    string
	Sort     string
	Desc     bool
}

// Repositories struct holds all repository instances
type Repositories struct {
	User                UserRepository
	Profile             ProfileRepository
	BlogPost            BlogPostRepository
	TrackedSubscription TrackedSubscriptionRepository
	Queue               QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB, rdb *redis.Client) *Repositories {
	return &Repositories{
		User:                NewUserRepository(db),
		Profile:             NewProfileRepository(db),
		BlogPost:            NewBlogPostRepository(db),
		TrackedSubscription: NewTrackedSubscriptionRepository(db),
		Queue:               NewQueueRepository(rdb),
	}
}
