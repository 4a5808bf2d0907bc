package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const contentTypeHeader = "Content-Type"

// NATSStore keeps objects in a JetStream object store bucket. Objects are
// served by this daemon through signed URLs.
type NATSStore struct {
	conn   *nats.Conn
	bucket string
	store  nats.ObjectStore
	signer *Signer
}

// NewNATS binds to bucket, creating it when it does not exist yet.
func NewNATS(conn *nats.Conn, bucket string, signer *Signer) (*NATSStore, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	store, err := js.ObjectStore(bucket)
	if err != nil {
		store, err = js.CreateObjectStore(&nats.ObjectStoreConfig{
			Bucket:      bucket,
			Description: fmt.Sprintf("Rendered narration audio for the %s bucket.", bucket),
			Storage:     nats.FileStorage,
			Replicas:    1,
		})
		if err != nil {
			return nil, fmt.Errorf("creating object store bucket %q: %w", bucket, err)
		}
	}

	return &NATSStore{conn: conn, bucket: bucket, store: store, signer: signer}, nil
}

func (n *NATSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	infos, err := n.store.List(nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrNoObjectsFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing bucket %q: %w", n.bucket, err)
	}

	var out []Object
	for _, info := range infos {
		if info.Deleted || !strings.HasPrefix(info.Name, prefix) {
			continue
		}
		out = append(out, Object{Key: info.Name, Size: int64(info.Size)})
	}
	return out, nil
}

func (n *NATSStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	meta := &nats.ObjectMeta{
		Name:    key,
		Headers: nats.Header{contentTypeHeader: []string{contentType}},
	}
	if _, err := n.store.Put(meta, bytes.NewReader(data), nats.Context(ctx)); err != nil {
		return fmt.Errorf("putting object %q to bucket %q: %w", key, n.bucket, err)
	}
	return nil
}

func (n *NATSStore) SignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return n.signer.Sign(key, ttl), nil
}

// Download retrieves an object and its content type.
func (n *NATSStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	info, err := n.store.GetInfo(key, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, "", fmt.Errorf("downloading %q: %w", key, ErrNotFound)
		}
		return nil, "", fmt.Errorf("reading info for %q: %w", key, err)
	}

	data, err := n.store.GetBytes(key, nats.Context(ctx))
	if err != nil {
		return nil, "", fmt.Errorf("getting object %q from bucket %q: %w", key, n.bucket, err)
	}
	return data, info.Headers.Get(contentTypeHeader), nil
}

// Ping reports whether the NATS connection is up.
func (n *NATSStore) Ping(context.Context) error {
	if status := n.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats connection %s", status)
	}
	return nil
}
