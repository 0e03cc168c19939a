// Package imagestore uploads custom card images to an object bucket and
// returns their public urls.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrDisabled = errors.New("image uploads are not configured")

type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

type Options struct {
	Driver        string
	Bucket        string
	PublicBaseURL string

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// New builds the store named by opts.Driver: "gcs", "s3" or "none".
func New(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "none":
		return Disabled{}, nil
	case "gcs":
		return NewGCS(ctx, opts)
	case "s3":
		return NewS3(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", opts.Driver)
	}
}

// Disabled rejects every upload.
type Disabled struct{}

func (Disabled) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(ctx context.Context, key string) error {
	return ErrDisabled
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Extension returns the file extension for an accepted image type.
func Extension(contentType string) (string, bool) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// CardImageKey is the object key of a new custom image for a card.
func CardImageKey(userID, cardID, contentType string) (string, error) {
	ext, ok := Extension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}
	d := time.Now().UTC()
	return fmt.Sprintf("cards/%s/%s/%d%02d%02d-%s%s", userID, cardID, d.Year(), d.Month(), d.Day(), uuid.NewString(), ext), nil
}

// SampleImageKey is the object key of a custom image for a sample card.
func SampleImageKey(userID, sampleDeckID, contentType string) (string, error) {
	ext, ok := Extension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}
	return fmt.Sprintf("samples/%s/%s/%s%s", userID, sampleDeckID, uuid.NewString(), ext), nil
}

func publicURL(base, bucket, key string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	if bucket != "" && strings.Contains(base, "{bucket}") {
		base = strings.ReplaceAll(base, "{bucket}", bucket)
	}
	return base + "/" + strings.TrimLeft(key, "/")
}
