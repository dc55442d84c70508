package storage

import (
	"context"
	"io"
)

// FileStore persists uploaded photo files under a key and resolves their public URL.
type FileStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
