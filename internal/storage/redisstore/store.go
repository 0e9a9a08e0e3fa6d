// Package redisstore provides a Redis-backed implementation of the storage.Store interface.
//
// Each collection is one hash: the field is the record key and the value is the
// JSON-encoded record. Update watches every collection hash, buffers writes in
// memory and commits them with MULTI/EXEC, so a transaction either applies all
// of its writes or none.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/formyfuture/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

const (
	collectionUsers         = "users"
	collectionProposals     = "proposals"
	collectionContributions = "contributions"
	collectionPayments      = "payments"

	defaultPrefix     = "formyfuture"
	defaultMaxRetries = 10
)

var collections = []string{
	collectionUsers,
	collectionProposals,
	collectionContributions,
	collectionPayments,
}

// ErrConflict is returned when optimistic retries are exhausted.
var ErrConflict = errors.New("redis transaction conflict")

// Options configures a Store.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the collection keys (default "formyfuture").
	Prefix string
	// MaxRetries bounds WATCH conflict retries per Update (default 10).
	MaxRetries int
}

// Store implements storage.Store using Redis hashes.
type Store struct {
	rdb        *redis.Client
	prefix     string
	maxRetries int
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewFromClient(rdb, opts.Prefix, opts.MaxRetries), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb *redis.Client, prefix string, maxRetries int) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Store{rdb: rdb, prefix: prefix, maxRetries: maxRetries}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) keys() []string {
	keys := make([]string, len(collections))
	for i, c := range collections {
		keys[i] = s.key(c)
	}
	return keys
}

func (s *Store) key(collection string) string {
	return s.prefix + ":" + collection
}

// Update runs fn with WATCH on every collection and commits its buffered
// writes atomically. On a concurrent modification fn is run again from a fresh
// read, so fn must be safe to repeat.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(rtx *redis.Tx) error {
			t := newTx(s, rtx)
			if err := fn(t); err != nil {
				return err
			}
			if len(t.writes) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key, fields := range t.writes {
					for field, value := range fields {
						pipe.HSet(ctx, key, field, value)
					}
				}
				return nil
			})
			return err
		}, s.keys()...)

		if errors.Is(err, redis.TxFailedErr) {
			slog.Debug("redis transaction conflict, retrying", "attempt", attempt+1)
			continue
		}
		return err
	}
	return ErrConflict
}

// View runs fn against the current data. Writes made by fn are discarded.
func (s *Store) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	return fn(newTx(s, s.rdb))
}

// hashReader is the subset of commands shared by *redis.Client and *redis.Tx.
type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// tx implements storage.Tx with read-your-writes over a buffered write set.
type tx struct {
	store  *Store
	reader hashReader
	writes map[string]map[string][]byte
}

var _ storage.Tx = (*tx)(nil)

func newTx(s *Store, reader hashReader) *tx {
	return &tx{store: s, reader: reader, writes: make(map[string]map[string][]byte)}
}

// get decodes the record stored under field into dst.
func (t *tx) get(ctx context.Context, collection, field string, dst any) error {
	key := t.store.key(collection)
	if pending, ok := t.writes[key][field]; ok {
		return json.Unmarshal(pending, dst)
	}
	data, err := t.reader.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s %s: %w", collection, field, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s %s: %w", collection, field, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", collection, field, err)
	}
	return nil
}

// put buffers a full-record replacement.
func (t *tx) put(collection, field string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", collection, field, err)
	}
	key := t.store.key(collection)
	if t.writes[key] == nil {
		t.writes[key] = make(map[string][]byte)
	}
	t.writes[key][field] = data
	return nil
}

// insert buffers a new record and fails if the key already exists.
func (t *tx) insert(ctx context.Context, collection, field string, v any) error {
	var existing json.RawMessage
	err := t.get(ctx, collection, field, &existing)
	if err == nil {
		return fmt.Errorf("%s %s already exists", collection, field)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return t.put(collection, field, v)
}

// all returns every raw record of a collection, pending writes included.
func (t *tx) all(ctx context.Context, collection string) (map[string][]byte, error) {
	key := t.store.key(collection)
	stored, err := t.reader.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	records := make(map[string][]byte, len(stored)+len(t.writes[key]))
	for field, value := range stored {
		records[field] = []byte(value)
	}
	for field, value := range t.writes[key] {
		records[field] = value
	}
	return records, nil
}

func (t *tx) count(ctx context.Context, collection string) (int64, error) {
	records, err := t.all(ctx, collection)
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}
