package grpckv

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/kvstore"
	"github.com/hanpama/typegraph/internal/reqid"
)

// startServer serves store over an in-memory listener and returns a client
// dialing it.
func startServer(t *testing.T, store kvstore.Store, opts ...grpc.ServerOption) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(opts...)
	srv, err := NewServer(store)
	require.NoError(t, err)
	srv.Register(gs)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	client, err := NewClient(
		WithEndpoints("passthrough:///bufnet"),
		WithDialOptions(
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// Pattern: client and server round trip over bufconn
func TestClientServer(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory()
	client := startServer(t, mem)

	require.NoError(t, client.Put(ctx, "user:1", kvstore.Record{"name": "Ann", "age": 41}))
	require.NoError(t, client.Put(ctx, "user:2", kvstore.Record{"name": "Bo", "admin": true}))

	rec, err := client.Get(ctx, "user:1")
	require.NoError(t, err)
	if diff := cmp.Diff(kvstore.Record{"name": "Ann", "age": int64(41)}, rec); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	stored, err := mem.Get(ctx, "user:2")
	require.NoError(t, err)
	require.Equal(t, true, stored["admin"])

	recs, err := client.GetMany(ctx, []string{"user:2", "nope", "user:1"})
	require.NoError(t, err)
	require.Nil(t, recs[1])
	require.Equal(t, "Bo", recs[0]["name"])
	require.Equal(t, "Ann", recs[2]["name"])

	_, err = client.Get(ctx, "nope")
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	keys, err := client.Keys(ctx, "user:")
	require.NoError(t, err)
	require.Equal(t, []string{"user:1", "user:2"}, keys)

	found, err := client.Delete(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, found)
	found, err = client.Delete(ctx, "user:1")
	require.NoError(t, err)
	require.False(t, found)

	require.ErrorIs(t, client.Put(ctx, "", kvstore.Record{}), kvstore.ErrInvalidKey)
}

func TestServerErrors(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory()
	client := startServer(t, mem)
	require.NoError(t, mem.Close())

	_, err := client.Keys(ctx, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "store closed")

	require.NoError(t, client.Close())
	_, err = client.Keys(ctx, "")
	require.ErrorIs(t, err, errClientClosed)
}

func TestNoEndpoints(t *testing.T) {
	client, err := NewClient(WithProvider(NewStaticEndpoints(nil)))
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrNoEndpoints)

	_, err = NewClient()
	require.Error(t, err)
}

func TestEventsAndMetadata(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var (
		mu      sync.Mutex
		client  []events.GRPCClientFinish
		server  []events.GRPCServerFinish
		seenIDs []string
	)
	eventbus.Subscribe(func(_ context.Context, e events.GRPCClientFinish) {
		mu.Lock()
		client = append(client, e)
		mu.Unlock()
	})
	eventbus.Subscribe(func(_ context.Context, e events.GRPCServerFinish) {
		mu.Lock()
		server = append(server, e)
		mu.Unlock()
	})
	capture := func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		mu.Lock()
		seenIDs = append(seenIDs, md.Get(reqid.Header)...)
		mu.Unlock()
		return h(ctx, req)
	}

	c := startServer(t, kvstore.NewMemory(), grpc.UnaryInterceptor(capture))
	ctx, id := reqid.NewContext(context.Background())
	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, kvstore.ErrNotFound)
	require.NoError(t, c.Put(ctx, "k", kvstore.Record{"v": 1}))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{id, id}, seenIDs)
	require.Len(t, client, 2)
	require.Len(t, server, 2)
	for i, method := range []string{"Get", "Put"} {
		require.Equal(t, ServiceName, client[i].Service)
		require.Equal(t, method, client[i].Method)
		require.Equal(t, codes.OK, client[i].Code)
		require.Equal(t, method, server[i].Method)
	}
}

func TestRenderProto(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderProto(&buf))
	actual := buf.String()
	require.Contains(t, actual, "service KVService")

	snapshotPath := filepath.Join("testdata", "kv.proto")
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		require.NoError(t, os.MkdirAll("testdata", 0o755))
		require.NoError(t, os.WriteFile(snapshotPath, []byte(actual), 0o644))
		t.Logf("Created snapshot file: %s", snapshotPath)
		return
	}
	expected, err := os.ReadFile(snapshotPath)
	require.NoError(t, err, "failed to read snapshot file")
	if diff := cmp.Diff(string(expected), actual); diff != "" {
		t.Errorf("Rendered proto snapshot mismatch (-want +got):\n%s", diff)
	}
}
