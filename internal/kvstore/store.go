// Package kvstore defines the key-value store behind runtime-shaped nodes
// and its in-memory implementation. A record is a flat map of attribute
// names to Go scalars (string, int64, float64, bool).
package kvstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
)

var (
	ErrNotFound   = errors.New("kvstore: key not found")
	ErrInvalidKey = errors.New("kvstore: invalid key")
	ErrClosed     = errors.New("kvstore: store closed")
)

// Record holds the attributes of one key.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Store is a key-value store. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the record stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)
	// GetMany returns one record per key, nil where a key is absent.
	GetMany(ctx context.Context, keys []string) ([]Record, error)
	// Put stores rec at key, replacing any previous record.
	Put(ctx context.Context, key string, rec Record) error
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Keys lists the keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// CheckKey rejects keys no store can hold.
func CheckKey(key string) error {
	if key == "" || strings.ContainsRune(key, 0) {
		return ErrInvalidKey
	}
	return nil
}

// Join builds a key from its parts, separated by ':'.
func Join(parts ...string) string { return strings.Join(parts, ":") }

func sortedKeys(keys []string) []string {
	sort.Strings(keys)
	return keys
}

// Observed wraps s so every call publishes an events.StoreCall.
func Observed(name string, s Store) Store { return &observed{name: name, Store: s} }

type observed struct {
	name string
	Store
}

func (o *observed) publish(ctx context.Context, op string, keys int, start time.Time, err error) {
	eventbus.Publish(ctx, events.StoreCall{Store: o.name, Op: op, Keys: keys, Err: err, Duration: time.Since(start)})
}

func (o *observed) Get(ctx context.Context, key string) (Record, error) {
	start := time.Now()
	rec, err := o.Store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		o.publish(ctx, "get", 1, start, nil)
	} else {
		o.publish(ctx, "get", 1, start, err)
	}
	return rec, err
}

func (o *observed) GetMany(ctx context.Context, keys []string) ([]Record, error) {
	start := time.Now()
	recs, err := o.Store.GetMany(ctx, keys)
	o.publish(ctx, "get_many", len(keys), start, err)
	return recs, err
}

func (o *observed) Put(ctx context.Context, key string, rec Record) error {
	start := time.Now()
	err := o.Store.Put(ctx, key, rec)
	o.publish(ctx, "put", 1, start, err)
	return err
}

func (o *observed) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	found, err := o.Store.Delete(ctx, key)
	o.publish(ctx, "delete", 1, start, err)
	return found, err
}

func (o *observed) Keys(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := o.Store.Keys(ctx, prefix)
	o.publish(ctx, "keys", len(keys), start, err)
	return keys, err
}
