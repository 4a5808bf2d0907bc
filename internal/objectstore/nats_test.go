package objectstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/nadzzz/ovida/internal/objectstore"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer starts an embedded JetStream-enabled NATS server.
func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)
	t.Cleanup(natsServer.Shutdown)

	conn, err := nats.Connect(natsServer.ClientURL())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	return natsServer, conn
}

func TestNATSStore_UploadListDownload(t *testing.T) {
	t.Parallel()

	_, conn := startTestServer(t)
	ctx := context.Background()

	store, err := objectstore.NewNATS(conn, "audio-cache", newTestSigner(t))
	require.NoError(t, err)

	empty, err := store.List(ctx, "ovida:")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Upload(ctx, "ovida:s:1:0:m:p:c:v/part-001-b.ogg", []byte("second"), "audio/ogg"))
	require.NoError(t, store.Upload(ctx, "ovida:s:1:0:m:p:c:v/part-000-a.ogg", []byte("first"), "audio/ogg"))
	require.NoError(t, store.Upload(ctx, "ovida:s:2:0:m:p:c:v/part-000-c.ogg", []byte("elsewhere"), "audio/ogg"))

	objects, err := store.List(ctx, "ovida:s:1:0:m:p:c:v/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"ovida:s:1:0:m:p:c:v/part-000-a.ogg",
		"ovida:s:1:0:m:p:c:v/part-001-b.ogg",
	}, keysOf(objects))

	data, contentType, err := store.Download(ctx, "ovida:s:1:0:m:p:c:v/part-000-a.ogg")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
	assert.Equal(t, "audio/ogg", contentType)

	_, _, err = store.Download(ctx, "nope")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)

	url, err := store.SignURL(ctx, "ovida:s:1:0:m:p:c:v/part-000-a.ogg", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/v1/audio/")

	assert.NoError(t, store.Ping(ctx))
}

func TestNATSStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	_, conn := startTestServer(t)
	ctx := context.Background()

	first, err := objectstore.NewNATS(conn, "shared", newTestSigner(t))
	require.NoError(t, err)
	require.NoError(t, first.Upload(ctx, "k/part-00.ogg", []byte("x"), "audio/ogg"))

	second, err := objectstore.NewNATS(conn, "shared", newTestSigner(t))
	require.NoError(t, err)

	objects, err := second.List(ctx, "k/")
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}
