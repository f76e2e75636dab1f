package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Memory is an in-process Store. Its contents can be saved to and loaded
// from msgpack snapshots.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]Record
	closed bool
}

func NewMemory() *Memory { return &Memory{data: make(map[string]Record)} }

var _ Store = (*Memory)(nil)

func (m *Memory) Get(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	rec, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return rec.Clone(), nil
}

func (m *Memory) GetMany(ctx context.Context, keys []string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Record, len(keys))
	for i, k := range keys {
		out[i] = m.data[k].Clone()
	}
	return out, nil
}

func (m *Memory) Put(ctx context.Context, key string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[key] = Normalize(rec)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.data[key]
	delete(m.data, key)
	return ok, nil
}

func (m *Memory) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return sortedKeys(keys), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

type snapshot struct {
	Version int               `msgpack:"version"`
	Entries map[string][]byte `msgpack:"entries"`
}

const snapshotVersion = 1

// Save writes every record to w.
func (m *Memory) Save(w io.Writer) error {
	m.mu.RLock()
	snap := snapshot{Version: snapshotVersion, Entries: make(map[string][]byte, len(m.data))}
	for k, rec := range m.data {
		b, err := Encode(rec)
		if err != nil {
			m.mu.RUnlock()
			return err
		}
		snap.Entries[k] = b
	}
	m.mu.RUnlock()

	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return enc.Encode(&snap)
}

// Load replaces the contents with a snapshot read from r.
func (m *Memory) Load(r io.Reader) error {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("kvstore: read snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("kvstore: unsupported snapshot version %d", snap.Version)
	}
	data := make(map[string]Record, len(snap.Entries))
	for k, b := range snap.Entries {
		rec, err := Decode(b)
		if err != nil {
			return fmt.Errorf("kvstore: snapshot entry %q: %w", k, err)
		}
		data[k] = rec
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

// SaveFile writes a snapshot to path, replacing it atomically.
func (m *Memory) SaveFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := m.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFile loads a snapshot from path. A missing file leaves the store
// empty.
func (m *Memory) LoadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Load(f)
}
