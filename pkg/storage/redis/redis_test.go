package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/storage"
	"github.com/rhuss/stockroom/pkg/storage/storagetest"
)

// setupMiniRedis starts a miniredis server and returns a store bound to it.
func setupMiniRedis(t *testing.T, opts ...Option) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewWithClient(client, opts...)
}

func TestStoreSuite(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.ItemStore {
		_, s := setupMiniRedis(t)
		return s
	})
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := New(context.Background(), Config{Addr: mr.Addr(), KeyPrefix: "test:"})
	require.NoError(t, err)
	defer s.Close()

	item, err := s.CreateItem(context.Background(), storagetest.NewTestItem("u1", "Laptop"))
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:item:"+item.ID))
	assert.True(t, mr.Exists("test:owner:u1:items"))
	assert.True(t, mr.Exists("test:items:seq"))
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(context.Background(), Config{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestKeyLayout(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, storagetest.NewTestItem("u1", "Laptop"))
	require.NoError(t, err)

	assert.Equal(t, "u1", mr.HGet("item:"+item.ID, fieldOwner))
	assert.Equal(t, "Laptop", mr.HGet("item:"+item.ID, fieldName))
	assert.Equal(t, "1299.99", mr.HGet("item:"+item.ID, fieldPrice))

	members, err := mr.Members("owner:u1:items")
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, members)

	seq, err := mr.Get("items:seq")
	require.NoError(t, err)
	assert.Equal(t, "1", seq)
}

func TestDeleteRemovesOwnerIndex(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, storagetest.NewTestItem("u1", "Laptop"))
	require.NoError(t, err)
	require.NoError(t, s.DeleteItem(ctx, item.ID))

	assert.False(t, mr.Exists("item:"+item.ID))
	assert.False(t, mr.Exists("owner:u1:items"))

	err = s.DeleteItem(ctx, item.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestListSkipsDanglingIndexEntries(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, storagetest.NewTestItem("u1", "Laptop"))
	require.NoError(t, err)
	_, err = mr.SAdd("owner:u1:items", "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)

	items, err := s.ListItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestUpdateAdvancesUnderFrozenClock(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	_, s := setupMiniRedis(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	item, err := s.CreateItem(ctx, storagetest.NewTestItem("u1", "Laptop"))
	require.NoError(t, err)

	updated, err := s.UpdateItem(ctx, item.ID, api.ItemPatch{})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(item.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(fixed))

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(updated.UpdatedAt))
}

func TestListTieBreaksByInsertionOrder(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	_, s := setupMiniRedis(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	first, err := s.CreateItem(ctx, storagetest.NewTestItem("u1", "first"))
	require.NoError(t, err)
	second, err := s.CreateItem(ctx, storagetest.NewTestItem("u1", "second"))
	require.NoError(t, err)

	items, err := s.ListItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
}

func TestServerDown(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, storagetest.NewTestItem("u1", "Laptop"))
	require.NoError(t, err)

	mr.Close()

	_, err = s.GetItem(ctx, item.ID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrNotFound))
	assert.Error(t, s.HealthCheck(ctx))
}

func TestDecodeItem_Corrupt(t *testing.T) {
	_, err := decodeItem(map[string]string{fieldID: "x", fieldSeq: "nope"})
	assert.Error(t, err)
}

func TestCloseLeavesInjectedClientOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewWithClient(client)
	require.NoError(t, s.Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}
