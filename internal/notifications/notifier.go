// Package notifications fans debate events out to live subscribers through
// Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"rostrum/internal/events"
	"rostrum/internal/observability"

	"github.com/redis/go-redis/v9"
)

const debateChannelPrefix = "debate:"

// Notifier publishes debate events into Redis channels so every API
// instance can forward them to its own websocket subscribers.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier. A nil client makes every call a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish implements events.Publisher.
func (n *Notifier) Publish(ctx context.Context, event events.DebateEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.PublishDebateEvent(ctx, event.DebateID, string(payload))
}

// PublishDebateEvent sends a raw payload to a debate's channel.
func (n *Notifier) PublishDebateEvent(ctx context.Context, debateID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	if err := n.rdb.Publish(ctx, DebateChannel(debateID), payload).Err(); err != nil {
		observability.EventPublishFailures.WithLabelValues("redis").Inc()
		return err
	}
	return nil
}

// Close implements events.Publisher. The Redis client is owned by the cache package.
func (n *Notifier) Close() error { return nil }

// StartDebateSubscriber subscribes to pattern `debate:*` and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartDebateSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, debateChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in debate subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// DebateChannel derives the Redis channel name for a debate.
func DebateChannel(debateID uint) string {
	return debateChannelPrefix + strconv.FormatUint(uint64(debateID), 10)
}

// ParseDebateChannel extracts the debate id from a channel name.
func ParseDebateChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, debateChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
