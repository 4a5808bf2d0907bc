package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nadzzz/ovida/internal/config"
)

// Open builds the store selected by cfg.Backend. The "none" backend yields a
// nil store. The returned close function is always non-nil.
func Open(ctx context.Context, cfg config.CacheConfig, signer *Signer) (Store, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case "none":
		return nil, noop, nil

	case "", "memory":
		store, err := NewMemory(cfg.MemoryEntries, signer)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("audio cache in memory", "max_objects", cfg.MemoryEntries)
		return store, noop, nil

	case "s3":
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("audio cache on s3", "bucket", cfg.Bucket, "endpoint", cfg.S3.Endpoint)
		return NewS3(client, cfg.Bucket), noop, nil

	case "nats":
		conn, err := nats.Connect(cfg.NATS.URL,
			nats.Name("ovida"),
			nats.Timeout(5*time.Second),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to nats at %s: %w", cfg.NATS.URL, err)
		}
		store, err := NewNATS(conn, cfg.Bucket, signer)
		if err != nil {
			conn.Close()
			return nil, noop, err
		}
		slog.Info("audio cache on nats", "bucket", cfg.Bucket, "url", cfg.NATS.URL)
		return store, conn.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
