package objectstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in a bounded in-process LRU. Eviction works per
// object, so a long-lived process may lose some chunks of a cache key; the
// file backend then serves whatever chunks remain.
type MemoryStore struct {
	objects *lru.Cache[string, memObject]
	signer  *Signer
}

// NewMemory returns a store holding at most maxObjects objects.
func NewMemory(maxObjects int, signer *Signer) (*MemoryStore, error) {
	if maxObjects <= 0 {
		maxObjects = 2048
	}
	cache, err := lru.New[string, memObject](maxObjects)
	if err != nil {
		return nil, fmt.Errorf("creating memory store: %w", err)
	}
	return &MemoryStore{objects: cache, signer: signer}, nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	var out []Object
	for _, key := range m.objects.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if obj, ok := m.objects.Peek(key); ok {
			out = append(out, Object{Key: key, Size: int64(len(obj.data))})
		}
	}
	return out, nil
}

func (m *MemoryStore) Upload(_ context.Context, key string, data []byte, contentType string) error {
	m.objects.Add(key, memObject{data: append([]byte(nil), data...), contentType: contentType})
	return nil
}

func (m *MemoryStore) SignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if !m.objects.Contains(key) {
		return "", fmt.Errorf("signing %q: %w", key, ErrNotFound)
	}
	return m.signer.Sign(key, ttl), nil
}

// Download returns a stored object.
func (m *MemoryStore) Download(_ context.Context, key string) ([]byte, string, error) {
	obj, ok := m.objects.Get(key)
	if !ok {
		return nil, "", fmt.Errorf("downloading %q: %w", key, ErrNotFound)
	}
	return obj.data, obj.contentType, nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int { return m.objects.Len() }
