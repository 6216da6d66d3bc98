package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rostrum/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), events.DebateEvent{DebateID: 1}))
	assert.NoError(t, n.StartDebateSubscriber(context.Background(), func(string, string) {}))
	assert.NoError(t, n.Close())
}

func TestDebateChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "debate:42", DebateChannel(42))

	id, ok := ParseDebateChannel("debate:42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"debate:", "debate:abc", "debate:0", "chat:conv:1"} {
		_, ok := ParseDebateChannel(bad)
		assert.False(t, ok, bad)
	}
}

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type message struct{ channel, payload string }
	got := make(chan message, 1)
	require.NoError(t, n.StartDebateSubscriber(ctx, func(channel, payload string) {
		got <- message{channel, payload}
	}))

	leader := uint(9)
	require.NoError(t, n.Publish(context.Background(), events.DebateEvent{
		Type:     events.TypeVoteCast,
		DebateID: 3,
		Agree:    2,
		LeaderID: &leader,
	}))

	select {
	case msg := <-got:
		assert.Equal(t, "debate:3", msg.channel)
		var event events.DebateEvent
		require.NoError(t, json.Unmarshal([]byte(msg.payload), &event))
		assert.Equal(t, int64(2), event.Agree)
		assert.Equal(t, &leader, event.LeaderID)
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestNotifier_SubscriberSurvivesPanic(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	require.NoError(t, n.StartDebateSubscriber(ctx, func(_ string, payload string) {
		if payload == "boom" {
			panic("handler failure")
		}
		mu.Lock()
		seen = append(seen, payload)
		mu.Unlock()
	}))

	require.NoError(t, n.PublishDebateEvent(context.Background(), 1, "boom"))
	require.NoError(t, n.PublishDebateEvent(context.Background(), 1, "after"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == "after"
	}, time.Second, 10*time.Millisecond)
}

func TestDebateHub_SubscribeBroadcastUnsubscribe(t *testing.T) {
	hub := NewDebateHub()
	ctx := context.Background()

	a, err := hub.Subscribe(ctx, 1)
	require.NoError(t, err)
	b, err := hub.Subscribe(ctx, 1)
	require.NoError(t, err)
	other, err := hub.Subscribe(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Subscribers(1))

	assert.Equal(t, 2, hub.Broadcast(1, []byte("tally")))
	assert.Equal(t, []byte("tally"), <-a.Send)
	assert.Equal(t, []byte("tally"), <-b.Send)
	assert.Empty(t, other.Send)

	hub.Unsubscribe(ctx, a)
	hub.Unsubscribe(ctx, a)
	assert.Equal(t, 1, hub.Subscribers(1))
	_, open := <-a.Send
	assert.False(t, open)

	assert.Equal(t, 1, hub.Broadcast(1, []byte("next")))
	assert.False(t, a.TrySend([]byte("late")))
}

func TestDebateHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewDebateHub()
	sub, err := hub.Subscribe(context.Background(), 5)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, sub.TrySend([]byte("x")))
	}
	assert.Equal(t, 0, hub.Broadcast(5, []byte("overflow")))
}

func TestDebateHub_PerDebateLimit(t *testing.T) {
	hub := NewDebateHub()
	for i := 0; i < maxSubscribersPerDebate; i++ {
		_, err := hub.Subscribe(context.Background(), 8)
		require.NoError(t, err)
	}
	_, err := hub.Subscribe(context.Background(), 8)
	assert.ErrorIs(t, err, ErrDebateFull)

	hub.Shutdown(context.Background())
	assert.Zero(t, hub.Subscribers(8))
}

func TestDebateHub_StartWiring(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	hub := NewDebateHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := hub.Subscribe(ctx, 11)
	require.NoError(t, err)
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishDebateEvent(context.Background(), 11, `{"type":"vote_cast"}`))
	select {
	case msg := <-sub.Send:
		assert.JSONEq(t, `{"type":"vote_cast"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("event was not forwarded to subscriber")
	}
}

type fakeConn struct {
	mu      sync.Mutex
	written []int
	reads   chan error
}

func (c *fakeConn) SetReadLimit(int64)                        {}
func (c *fakeConn) SetReadDeadline(time.Time) error           { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error          { return nil }
func (c *fakeConn) SetPongHandler(func(appData string) error) {}
func (c *fakeConn) Close() error                              { return nil }

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, <-c.reads
}

func (c *fakeConn) WriteMessage(messageType int, _ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, messageType)
	return nil
}

func (c *fakeConn) types() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.written...)
}

func TestSubscriber_PumpsStopWhenPeerLeaves(t *testing.T) {
	hub := NewDebateHub()
	ctx := context.Background()
	sub, err := hub.Subscribe(ctx, 4)
	require.NoError(t, err)

	conn := &fakeConn{reads: make(chan error, 1)}
	done := make(chan struct{})
	go func() {
		sub.WritePump(conn)
		close(done)
	}()

	hub.Broadcast(4, []byte("update"))
	assert.Eventually(t, func() bool {
		return len(conn.types()) == 1
	}, time.Second, 10*time.Millisecond)

	conn.reads <- errors.New("peer closed")
	sub.ReadPump(ctx, conn)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit")
	}
	assert.Equal(t, []int{websocket.TextMessage, websocket.CloseMessage}, conn.types())
	assert.Zero(t, hub.Subscribers(4))
}

func TestSubscriber_ServeWaitsForWritePump(t *testing.T) {
	hub := NewDebateHub()
	ctx := context.Background()
	sub, err := hub.Subscribe(ctx, 9)
	require.NoError(t, err)

	conn := &fakeConn{reads: make(chan error, 1)}
	conn.reads <- errors.New("peer closed")
	sub.Serve(ctx, conn)

	assert.Equal(t, []int{websocket.CloseMessage}, conn.types())
	assert.Zero(t, hub.Subscribers(9))
}

func TestDebateHub_LocalPublisher(t *testing.T) {
	hub := NewDebateHub()
	ctx := context.Background()
	sub, err := hub.Subscribe(ctx, 3)
	require.NoError(t, err)
	other, err := hub.Subscribe(ctx, 4)
	require.NoError(t, err)

	pub := hub.LocalPublisher()
	require.NoError(t, pub.Publish(ctx, events.DebateEvent{Type: events.TypeVoteCast, DebateID: 3, Agree: 2}))

	select {
	case msg := <-sub.Send:
		var got events.DebateEvent
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, events.TypeVoteCast, got.Type)
		assert.Equal(t, int64(2), got.Agree)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
	assert.Empty(t, other.Send)
	assert.NoError(t, pub.Close())
}
