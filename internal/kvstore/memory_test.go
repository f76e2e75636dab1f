package kvstore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
)

func seed(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "user:1", Record{"name": "Ann", "age": 41, "admin": true}))
	require.NoError(t, m.Put(ctx, "user:2", Record{"name": "Bo", "score": 2.5}))
	require.NoError(t, m.Put(ctx, "team:1", Record{"name": "Core"}))
	return m
}

// Pattern: CRUD round trip
func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := seed(t)

	rec, err := m.Get(ctx, "user:1")
	require.NoError(t, err)
	if diff := cmp.Diff(Record{"name": "Ann", "age": int64(41), "admin": true}, rec); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	rec["name"] = "changed"
	again, _ := m.Get(ctx, "user:1")
	require.Equal(t, "Ann", again["name"], "records are copied out")

	_, err = m.Get(ctx, "user:9")
	require.ErrorIs(t, err, ErrNotFound)

	many, err := m.GetMany(ctx, []string{"user:2", "user:9", "team:1"})
	require.NoError(t, err)
	if diff := cmp.Diff([]Record{{"name": "Bo", "score": 2.5}, nil, {"name": "Core"}}, many); diff != "" {
		t.Fatalf("GetMany mismatch (-want +got):\n%s", diff)
	}

	keys, err := m.Keys(ctx, "user:")
	require.NoError(t, err)
	require.Equal(t, []string{"user:1", "user:2"}, keys)

	found, err := m.Delete(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, found)
	found, err = m.Delete(ctx, "user:1")
	require.NoError(t, err)
	require.False(t, found)

	require.ErrorIs(t, m.Put(ctx, "", Record{}), ErrInvalidKey)

	require.NoError(t, m.Close())
	_, err = m.Get(ctx, "team:1")
	require.ErrorIs(t, err, ErrClosed)
}

func TestMemory_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := seed(t).Keys(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemory_Snapshot(t *testing.T) {
	m := seed(t)
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	restored := NewMemory()
	require.NoError(t, restored.Load(&buf))
	keys, err := restored.Keys(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []string{"team:1", "user:1", "user:2"}, keys)
	rec, err := restored.Get(context.Background(), "user:1")
	require.NoError(t, err)
	require.Equal(t, int64(41), rec["age"])

	path := filepath.Join(t.TempDir(), "store.msgpack")
	fromFile := NewMemory()
	require.NoError(t, fromFile.LoadFile(path), "missing snapshot leaves the store empty")
	require.NoError(t, m.SaveFile(path))
	require.NoError(t, fromFile.LoadFile(path))
	rec, err = fromFile.Get(context.Background(), "user:2")
	require.NoError(t, err)
	require.Equal(t, 2.5, rec["score"])

	require.Error(t, NewMemory().Load(bytes.NewReader([]byte{0xc1})))
}

func TestCodec(t *testing.T) {
	in := Record{"s": "x", "i": 7, "neg": -3, "big": int64(1) << 40, "f": 1.25, "b": false}
	data, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	want := Record{"s": "x", "i": int64(7), "neg": int64(-3), "big": int64(1) << 40, "f": 1.25, "b": false}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestObserved(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var calls []events.StoreCall
	eventbus.Subscribe(func(_ context.Context, e events.StoreCall) { calls = append(calls, e) })

	s := Observed("mem", seed(t))
	ctx := context.Background()
	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetMany(ctx, []string{"user:1", "user:2"})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "x", Record{}))

	type call struct {
		Op   string
		Keys int
		Err  bool
	}
	var got []call
	for _, c := range calls {
		require.Equal(t, "mem", c.Store)
		got = append(got, call{Op: c.Op, Keys: c.Keys, Err: c.Err != nil})
	}
	want := []call{{Op: "get", Keys: 1}, {Op: "get_many", Keys: 2}, {Op: "put", Keys: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}
