// Package objectstore persists rendered audio under its cache key and hands
// out time-limited URLs for it.
//
// Objects are addressed by "{cacheKey}/{name}". Listing a cache key's prefix
// returns every chunk rendered for it; callers sort by name to recover
// narration order.
package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes one stored object.
type Object struct {
	// Key is the full object key, prefix included.
	Key  string
	Size int64
}

// Store is the cache persistence contract used by file backends.
type Store interface {
	// List returns every object whose key starts with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Upload stores data under key.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// SignURL returns a URL that serves key until ttl elapses.
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Downloader is implemented by stores whose objects are served by this
// daemon rather than by the storage provider.
type Downloader interface {
	Download(ctx context.Context, key string) (data []byte, contentType string, err error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
