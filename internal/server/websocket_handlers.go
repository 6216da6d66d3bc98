package server

import (
	"context"
	"errors"

	"rostrum/internal/middleware"
	"rostrum/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const localDebateID = "debateID"

// requireDebateUpgrade admits websocket upgrades for debates that exist.
func (s *Server) requireDebateUpgrade(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := s.debateRepo.GetByID(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	c.Locals(localDebateID, id)
	return c.Next()
}

// DebateStream handles GET /ws/debate/:id. Subscribers receive every
// vote_cast, leader_changed and response_created event of the debate.
func (s *Server) DebateStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		debateID, _ := conn.Locals(localDebateID).(uint)
		ctx := middleware.WithDebateID(context.Background(), debateID)

		sub, err := s.hub.Subscribe(ctx, debateID)
		if err != nil {
			msg := `{"error":"subscription failed"}`
			if errors.Is(err, notifications.ErrDebateFull) || errors.Is(err, notifications.ErrServerFull) {
				msg = `{"error":"` + err.Error() + `"}`
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
			_ = conn.Close()
			return
		}

		sub.Serve(ctx, conn)
	})
}
