package memory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLog_AppendTrimsToCapacity(t *testing.T) {
	mr, client := newMiniredisClient(t)
	ctx := context.Background()
	l := NewRedisLogFromClient(client, 3, WithPrefix("test:"))

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(ctx, entry(i)))
	}

	items, err := mr.List("test:entries")
	require.NoError(t, err)
	assert.Len(t, items, 3)

	entries, err := l.Load(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "prompt 2", entries[0].Text)
	assert.Equal(t, "prompt 4", entries[2].Text)
}

func TestRedisLog_StoreRoundTrip(t *testing.T) {
	_, client := newMiniredisClient(t)
	ctx := context.Background()

	s := NewStore(10, WithBackend(NewRedisLogFromClient(client, 10)))
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Append(ctx, entry(i)))
	}

	s2 := NewStore(2, WithBackend(NewRedisLogFromClient(client, 10)))
	require.NoError(t, s2.Load(ctx))

	got := s2.Recent(0)
	require.Len(t, got, 2)
	assert.Equal(t, "prompt 2", got[0].Text)
	assert.True(t, got[1].Timestamp.Equal(entry(3).Timestamp))
}

func TestRedisLog_LoadEmpty(t *testing.T) {
	_, client := newMiniredisClient(t)
	l := NewRedisLogFromClient(client, 5)

	entries, err := l.Load(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedisLog_ConnectionError(t *testing.T) {
	mr, client := newMiniredisClient(t)
	l := NewRedisLogFromClient(client, 5)
	mr.Close()

	assert.Error(t, l.Append(context.Background(), entry(1)))
}

func TestRedisLog_CloseLeavesBorrowedClient(t *testing.T) {
	_, client := newMiniredisClient(t)
	l := NewRedisLogFromClient(client, 5)

	require.NoError(t, l.Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}
