package repository

import (
	"sync"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Factory builds the repositories once and hands out shared instances
type Factory struct {
	db    *gorm.DB
	rdb   *redis.Client
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB, rdb *redis.Client) *Factory {
	return &Factory{
		db:  db,
		rdb: rdb,
	}
}

// GetRepositories returns the shared set of repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db, f.rdb)
	})
	return f.repos
}

// DB exposes the handle for services that build their own stores.
func (f *Factory) DB() *gorm.DB {
	return f.db
}

func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

func (f *Factory) GetProfileRepository() ProfileRepository {
	return f.GetRepositories().Profile
}

func (f *Factory) GetBlogPostRepository() BlogPostRepository {
	return f.GetRepositories().BlogPost
}

func (f *Factory) GetTrackedSubscriptionRepository() TrackedSubscriptionRepository {
	return f.GetRepositories().TrackedSubscription
}

// GetQueueRepository returns the queue repository instance
func (f *Factory) GetQueueRepository() QueueRepository {
	return f.GetRepositories().Queue
}
