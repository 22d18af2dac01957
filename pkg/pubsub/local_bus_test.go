package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBusPublishSubscribe(t *testing.T) {
	bus := NewLocalBus()
	ctx := context.Background()

	ch, unsubscribe, err := bus.Subscribe(ctx, "session:u1")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "session:u1", []byte("a")))
	require.NoError(t, bus.Publish(ctx, "session:u2", []byte("other")))

	select {
	case payload := <-ch:
		assert.Equal(t, []byte("a"), payload)
	case <-time.After(time.Second):
		t.Fatal("payload not delivered")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
	assert.NoError(t, bus.Publish(ctx, "session:u1", []byte("b")))
}

func TestLocalBusDropsWhenSubscriberIsSlow(t *testing.T) {
	bus := NewLocalBus()
	ctx := context.Background()

	ch, unsubscribe, err := bus.Subscribe(ctx, "session:u1")
	require.NoError(t, err)
	defer unsubscribe()

	for i := 0; i < 32; i++ {
		require.NoError(t, bus.Publish(ctx, "session:u1", []byte{byte(i)}))
	}
	assert.Equal(t, 16, len(ch))
}

func TestLocalBusCache(t *testing.T) {
	bus := NewLocalBus()
	ctx := context.Background()

	_, err := bus.Cached(ctx, "session:u1")
	assert.ErrorIs(t, err, ErrNotCached)

	require.NoError(t, bus.Cache(ctx, "session:u1", []byte("v1"), time.Minute))
	require.NoError(t, bus.Cache(ctx, "session:u1", []byte("v2"), time.Minute))

	payload, err := bus.Cached(ctx, "session:u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), payload)
	assert.NoError(t, bus.Close())
}
