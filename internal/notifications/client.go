package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send pongs and close frames.
	maxMessageSize = 512

	sendBuffer = 64
)

// Conn is the part of a websocket connection the pumps drive.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscriber is one live connection watching a debate.
type Subscriber struct {
	DebateID uint
	Send     chan []byte

	hub       *DebateHub
	closeOnce sync.Once
}

func newSubscriber(hub *DebateHub, debateID uint) *Subscriber {
	return &Subscriber{
		DebateID: debateID,
		Send:     make(chan []byte, sendBuffer),
		hub:      hub,
	}
}

// TrySend queues a message without blocking. A full buffer drops the message;
// the next event carries the latest tallies anyway.
func (s *Subscriber) TrySend(message []byte) bool {
	defer func() {
		_ = recover()
	}()
	select {
	case s.Send <- message:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.Send) })
}

// ReadPump consumes control frames until the peer goes away, then
// unsubscribes. It blocks and should run on the handler goroutine.
func (s *Subscriber) ReadPump(ctx context.Context, conn Conn) {
	defer func() {
		s.hub.Unsubscribe(ctx, s)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.log.LogError(ctx, s.DebateID, err)
			}
			return
		}
	}
}

// Serve runs both pumps and returns once the write pump has stopped, so the
// caller may release the connection.
func (s *Subscriber) Serve(ctx context.Context, conn Conn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.WritePump(conn)
	}()
	s.ReadPump(ctx, conn)
	<-done
}

// WritePump forwards queued events to the connection and keeps it alive
// with pings.
func (s *Subscriber) WritePump(conn Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
