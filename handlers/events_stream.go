package handlers

import (
	"bufio"
	"strings"
	"time"

	"community-challenges/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	sseBuffer    = 32
	sseKeepalive = 15 * time.Second
)

// StreamEvents streams a challenge's domain events over SSE.
func (h *ChallengeHandler) StreamEvents(c *fiber.Ctx) error {
	challengeID := strings.Clone(c.Params("id"))
	if _, err := h.Engine.GetChallenge(c.UserContext(), challengeID); err != nil {
		return writeError(c, err)
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	events, cancel := h.Hub.Subscribe(challengeID, sseBuffer)
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(sseKeepalive)
		defer ticker.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				frame, err := services.SSEFrame(ev)
				if err != nil {
					log.Error().Err(err).Str("challenge_id", challengeID).Msg("[SSE] failed to encode event")
					continue
				}
				w.Write(frame)
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}
			case <-ticker.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})

	return nil
}
