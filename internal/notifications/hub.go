package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"rostrum/internal/events"
	"rostrum/internal/observability"
)

const (
	maxSubscribersPerDebate = 500
	maxTotalSubscribers     = 10000
)

var (
	ErrDebateFull = errors.New("debate subscriber limit reached")
	ErrServerFull = errors.New("server connection limit reached")
)

// DebateHub maps debate id to the live connections watching it.
type DebateHub struct {
	mu    sync.RWMutex
	subs  map[uint]map[*Subscriber]struct{}
	total int
	log   *observability.HubLogger
}

func NewDebateHub() *DebateHub {
	return &DebateHub{
		subs: make(map[uint]map[*Subscriber]struct{}),
		log:  observability.NewHubLogger("debate hub"),
	}
}

// Subscribe registers a new subscriber for debateID.
func (h *DebateHub) Subscribe(ctx context.Context, debateID uint) (*Subscriber, error) {
	h.mu.Lock()
	if h.total >= maxTotalSubscribers {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	m, ok := h.subs[debateID]
	if !ok {
		m = make(map[*Subscriber]struct{})
		h.subs[debateID] = m
	}
	if len(m) >= maxSubscribersPerDebate {
		h.mu.Unlock()
		return nil, ErrDebateFull
	}

	sub := newSubscriber(h, debateID)
	m[sub] = struct{}{}
	h.total++
	count := len(m)
	h.mu.Unlock()

	observability.DebateSubscribers.Inc()
	h.log.LogSubscribe(ctx, debateID, count)
	return sub, nil
}

// Unsubscribe removes sub and closes its send channel. Safe to call twice.
func (h *DebateHub) Unsubscribe(ctx context.Context, sub *Subscriber) {
	h.mu.Lock()
	removed := false
	count := 0
	if m, ok := h.subs[sub.DebateID]; ok {
		if _, exists := m[sub]; exists {
			delete(m, sub)
			h.total--
			removed = true
		}
		count = len(m)
		if count == 0 {
			delete(h.subs, sub.DebateID)
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	sub.close()
	observability.DebateSubscribers.Dec()
	h.log.LogUnsubscribe(ctx, sub.DebateID, count)
}

// Broadcast queues message for every subscriber of debateID and returns how
// many accepted it.
func (h *DebateHub) Broadcast(debateID uint, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for sub := range h.subs[debateID] {
		if sub.TrySend(message) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the live connection count for debateID.
func (h *DebateHub) Subscribers(debateID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[debateID])
}

// StartWiring forwards every debate event published through Redis to the
// local subscribers of that debate.
func (h *DebateHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartDebateSubscriber(ctx, func(channel, payload string) {
		debateID, ok := ParseDebateChannel(channel)
		if !ok {
			observability.GlobalLogger.WarnContext(ctx, "invalid debate channel", "channel", channel)
			return
		}
		h.Broadcast(debateID, []byte(payload))
	})
}

// LocalPublisher delivers events straight to this instance's subscribers.
// It stands in for the Redis fan-out when no Redis client is configured.
func (h *DebateHub) LocalPublisher() events.Publisher {
	return localPublisher{hub: h}
}

type localPublisher struct {
	hub *DebateHub
}

func (p localPublisher) Publish(_ context.Context, event events.DebateEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.hub.Broadcast(event.DebateID, payload)
	return nil
}

func (p localPublisher) Close() error { return nil }

// Shutdown closes every subscriber; their write pumps send a close frame and exit.
func (h *DebateHub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	all := h.subs
	h.subs = make(map[uint]map[*Subscriber]struct{})
	h.total = 0
	h.mu.Unlock()

	for debateID, m := range all {
		for sub := range m {
			sub.close()
			observability.DebateSubscribers.Dec()
		}
		h.log.LogUnsubscribe(ctx, debateID, 0)
	}
}
