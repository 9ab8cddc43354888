// Package redis provides a Redis implementation of storage.ItemStore.
//
// Each item is a hash at "item:<id>". The IDs owned by a user are kept in
// the set "owner:<ownerId>:items" and the insertion sequence comes from the
// "items:seq" counter. Writes that touch more than one key run in MULTI/EXEC
// transactions guarded by WATCH.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/debug"
	"github.com/rhuss/stockroom/pkg/storage"
)

// maxTxRetries bounds optimistic transaction retries when a watched key
// changes between read and commit.
const maxTxRetries = 16

// Hash field names.
const (
	fieldID          = "id"
	fieldSeq         = "seq"
	fieldOwner       = "owner_id"
	fieldName        = "name"
	fieldDescription = "description"
	fieldQuantity    = "quantity"
	fieldPrice       = "price"
	fieldCategory    = "category"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

// Store is a Redis-backed ItemStore.
type Store struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
	owned  bool
}

// Ensure Store implements storage.ItemStore at compile time.
var _ storage.ItemStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKeyPrefix sets the prefix prepended to every key.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg.defaults()

	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	s := NewWithClient(client, append([]Option{WithKeyPrefix(cfg.KeyPrefix)}, opts...)...)
	s.owned = true
	return s, nil
}

// NewWithClient wraps an existing client. Close does not close a client
// passed in this way.
func NewWithClient(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) itemKey(id string) string       { return s.prefix + "item:" + id }
func (s *Store) ownerKey(ownerID string) string { return s.prefix + "owner:" + ownerID + ":items" }
func (s *Store) seqKey() string                 { return s.prefix + "items:seq" }

// CreateItem stores item under a fresh ID and adds it to the owner index.
func (s *Store) CreateItem(ctx context.Context, item *api.Item) (*api.Item, error) {
	if err := storage.CheckConstraints(item); err != nil {
		return nil, err
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("allocating sequence: %w", err)
	}

	stored := item.Clone()
	stored.ID = api.NewItemID()
	stored.Seq = seq
	stored.CreatedAt = storage.Timestamp(s.now())
	stored.UpdatedAt = stored.CreatedAt

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.itemKey(stored.ID), encodeItem(stored))
		pipe.SAdd(ctx, s.ownerKey(stored.OwnerID), stored.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inserting item: %w", err)
	}

	debug.Log("store", "item created", "backend", "redis", "id", stored.ID, "owner", stored.OwnerID)
	return stored, nil
}

// GetItem retrieves an item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (*api.Item, error) {
	if id == "" {
		return nil, storage.ErrNotFound
	}

	fields, err := s.client.HGetAll(ctx, s.itemKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	if len(fields) == 0 {
		return nil, storage.ErrNotFound
	}
	return decodeItem(fields)
}

// ListItems returns the owner's items, newest first.
func (s *Store) ListItems(ctx context.Context, ownerID string) ([]*api.Item, error) {
	ids, err := s.client.SMembers(ctx, s.ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	items := make([]*api.Item, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.itemKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Deleted between SMEMBERS and HGETALL.
			continue
		}
		item, err := decodeItem(fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	storage.SortNewestFirst(items)
	return items, nil
}

// UpdateItem applies patch under WATCH so a concurrent delete is never
// resurrected. The stored item is left untouched on constraint failure.
func (s *Store) UpdateItem(ctx context.Context, id string, patch api.ItemPatch) (*api.Item, error) {
	if id == "" {
		return nil, storage.ErrNotFound
	}
	key := s.itemKey(id)

	var updated *api.Item
	txf := func(tx *goredis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return storage.ErrNotFound
		}
		current, err := decodeItem(fields)
		if err != nil {
			return err
		}

		next := current.Clone()
		patch.Apply(next)
		if err := storage.CheckConstraints(next); err != nil {
			return err
		}
		next.UpdatedAt = storage.NextUpdate(current.UpdatedAt, s.now())

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeItem(next))
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return nil, mapError("updating item", err)
	}
	return updated, nil
}

// DeleteItem removes the item hash and its owner index entry atomically.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return storage.ErrNotFound
	}
	key := s.itemKey(id)

	txf := func(tx *goredis.Tx) error {
		owner, err := tx.HGet(ctx, key, fieldOwner).Result()
		if errors.Is(err, goredis.Nil) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.ownerKey(owner), id)
			return nil
		})
		return err
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return mapError("deleting item", err)
	}
	return nil
}

// watch runs txf under WATCH, retrying when a watched key changed before
// EXEC.
func (s *Store) watch(ctx context.Context, txf func(*goredis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
		debug.Log("store", "redis transaction conflict, retrying", "attempt", i+1, "keys", keys)
	}
	return fmt.Errorf("transaction on %v: too many conflicts", keys)
}

// HealthCheck pings the server.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client if the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// mapError passes storage sentinels through and wraps everything else.
func mapError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConstraint) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func encodeItem(item *api.Item) map[string]any {
	return map[string]any{
		fieldID:          item.ID,
		fieldSeq:         strconv.FormatInt(item.Seq, 10),
		fieldOwner:       item.OwnerID,
		fieldName:        item.Name,
		fieldDescription: item.Description,
		fieldQuantity:    strconv.Itoa(item.Quantity),
		fieldPrice:       strconv.FormatFloat(item.Price, 'g', -1, 64),
		fieldCategory:    item.Category,
		fieldCreatedAt:   item.CreatedAt.Format(time.RFC3339Nano),
		fieldUpdatedAt:   item.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func decodeItem(fields map[string]string) (*api.Item, error) {
	item := &api.Item{
		ID:          fields[fieldID],
		OwnerID:     fields[fieldOwner],
		Name:        fields[fieldName],
		Description: fields[fieldDescription],
		Category:    fields[fieldCategory],
	}

	var err error
	if item.Seq, err = strconv.ParseInt(fields[fieldSeq], 10, 64); err != nil {
		return nil, fmt.Errorf("decoding item %s: seq: %w", item.ID, err)
	}
	if item.Quantity, err = strconv.Atoi(fields[fieldQuantity]); err != nil {
		return nil, fmt.Errorf("decoding item %s: quantity: %w", item.ID, err)
	}
	if item.Price, err = strconv.ParseFloat(fields[fieldPrice], 64); err != nil {
		return nil, fmt.Errorf("decoding item %s: price: %w", item.ID, err)
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("decoding item %s: created_at: %w", item.ID, err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("decoding item %s: updated_at: %w", item.ID, err)
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}
