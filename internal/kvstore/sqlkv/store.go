// Package sqlkv implements kvstore.Store on a SQL table holding one
// msgpack-encoded record per key. SQLite, PostgreSQL and MySQL are
// supported; the SQLite driver is linked in.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	_ "modernc.org/sqlite"

	"github.com/hanpama/typegraph/internal/kvstore"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "typegraph_kv"

// maxBatch bounds the keys of one IN clause.
const maxBatch = 500

type Store struct {
	db      *sql.DB
	dialect dialect
	table   string
	owned   bool
}

var _ kvstore.Store = (*Store)(nil)

type Option func(*Store) error

// WithTable sets the table name.
func WithTable(name string) Option {
	return func(s *Store) error {
		if !validIdentifier.MatchString(name) || len(name) > 63 {
			return fmt.Errorf("sqlkv: invalid table name %q", name)
		}
		s.table = name
		return nil
	}
}

// Open opens a database with driver and dsn and ensures the table exists.
// The store owns the database and closes it on Close.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlkv: open: %w", err)
	}
	s, err := New(db, driver, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. dialectName is a driver name such as
// "sqlite", "postgres" or "mysql".
func New(db *sql.DB, dialectName string, opts ...Option) (*Store, error) {
	d, err := dialectFor(dialectName)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, dialect: d, table: DefaultTable}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Migrate creates the table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable(s.table)); err != nil {
		return fmt.Errorf("sqlkv: create table: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (kvstore.Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.dialect.selectOne(s.table), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", kvstore.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlkv: get: %w", err)
	}
	return kvstore.Decode(data)
}

func (s *Store) GetMany(ctx context.Context, keys []string) ([]kvstore.Record, error) {
	found := make(map[string]kvstore.Record, len(keys))
	for start := 0; start < len(keys); start += maxBatch {
		end := min(start+maxBatch, len(keys))
		if err := s.getBatch(ctx, keys[start:end], found); err != nil {
			return nil, err
		}
	}
	out := make([]kvstore.Record, len(keys))
	for i, k := range keys {
		out[i] = found[k].Clone()
	}
	return out, nil
}

func (s *Store) getBatch(ctx context.Context, keys []string, found map[string]kvstore.Record) error {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.selectMany(s.table, len(keys)), args...)
	if err != nil {
		return fmt.Errorf("sqlkv: get many: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return fmt.Errorf("sqlkv: get many: %w", err)
		}
		rec, err := kvstore.Decode(data)
		if err != nil {
			return err
		}
		found[id] = rec
	}
	return rows.Err()
}

func (s *Store) Put(ctx context.Context, key string, rec kvstore.Record) error {
	if err := kvstore.CheckKey(key); err != nil {
		return err
	}
	data, err := kvstore.Encode(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert(s.table), key, data); err != nil {
		return fmt.Errorf("sqlkv: put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.delete(s.table), key)
	if err != nil {
		return false, fmt.Errorf("sqlkv: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlkv: delete: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = s.db.QueryContext(ctx, s.dialect.selectKeys(s.table, false))
	} else {
		rows, err = s.db.QueryContext(ctx, s.dialect.selectKeys(s.table, true), utf8.RuneCountInString(prefix), prefix)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlkv: keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlkv: keys: %w", err)
		}
		// Case-insensitive collations match more than the prefix.
		if strings.HasPrefix(id, prefix) {
			keys = append(keys, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlkv: keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the database when the store opened it.
func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
