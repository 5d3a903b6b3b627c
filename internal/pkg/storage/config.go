// Package storage keeps blog cover images in S3-compatible object storage.
package storage

import (
	"fmt"
	"strings"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

// Config holds the object storage settings.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	EndpointURL     string // optional, for S3-compatible services
	PublicBaseURL   string // optional CDN or public bucket URL
	Prefix          string
	MaxUploadBytes  int64
}

func ConfigFromEnv() Config {
	return Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		Bucket:          env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_URL", ""),
		Prefix:          strings.Trim(env.GetEnv("S3_PREFIX", ""), "/"),
		MaxUploadBytes:  int64(env.GetInt("COVER_MAX_UPLOAD_MB", 8)) << 20,
	}
}

// Configured reports whether credentials and a bucket are present.
func (c Config) Configured() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

// ObjectURL is the public address of key.
func (c Config) ObjectURL(key string) string {
	switch {
	case c.PublicBaseURL != "":
		return strings.TrimRight(c.PublicBaseURL, "/") + "/" + key
	case c.EndpointURL != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.EndpointURL, "/"), c.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.Bucket, c.Region, key)
	}
}

// CoverKey builds the object key of a cover image: [prefix/]covers/YYYY/MM/<id><ext>.
func (c Config) CoverKey(id, ext string, year, month int) string {
	key := fmt.Sprintf("covers/%04d/%02d/%s%s", year, month, id, ext)
	if c.Prefix != "" {
		key = c.Prefix + "/" + key
	}
	return key
}
