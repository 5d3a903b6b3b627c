package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned for uploads above the configured size limit.
var ErrTooLarge = errors.New("storage: file too large")

// CoverUploader validates, scales and stores blog cover images.
type CoverUploader struct {
	store ObjectStore
	cfg   Config
	now   func() time.Time
}

func NewCoverUploader(store ObjectStore, cfg Config) *CoverUploader {
	return &CoverUploader{store: store, cfg: cfg, now: time.Now}
}

// Upload stores data under a fresh key and returns its public URL.
func (u *CoverUploader) Upload(ctx context.Context, data []byte) (string, error) {
	if u == nil || u.store == nil {
		return "", ErrNotConfigured
	}
	if u.cfg.MaxUploadBytes > 0 && int64(len(data)) > u.cfg.MaxUploadBytes {
		return "", ErrTooLarge
	}
	cover, err := PrepareCover(data)
	if err != nil {
		return "", err
	}
	now := u.now()
	key := u.cfg.CoverKey(uuid.NewString(), cover.Ext, now.Year(), int(now.Month()))
	return u.store.Put(ctx, key, cover.Data, cover.ContentType)
}
