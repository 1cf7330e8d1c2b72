// handlers/challenge_routes.go
package handlers

import (
	"community-challenges/middleware"
	"community-challenges/services"

	"github.com/gofiber/fiber/v2"
)

// SetupChallengeRoutes registers the challenge API. Gateway auth is applied
// globally by the caller; secured routes also need the user context.
func SetupChallengeRoutes(app *fiber.App, h *ChallengeHandler, voteLimiter *middleware.RateLimiter) {
	// 🔓 Public routes
	app.Get("/challenges/active", h.GetActiveChallenges)
	app.Get("/challenges/templates", h.GetTemplates)
	app.Get("/challenges/:id", h.GetChallenge)
	app.Get("/challenges/:id/leaderboard", h.GetLeaderboard)
	app.Get("/challenges/:id/submissions", h.ListSubmissions)
	app.Get("/challenges/:id/submissions/:submission_id", h.GetSubmission)
	app.Post("/challenges/:id/views", h.RecordView)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/challenges", h.CreateChallenge)
	secured.Post("/challenges/templates/:template_id", h.CreateFromTemplate)
	secured.Post("/challenges/:id/launch", h.LaunchChallenge)
	secured.Post("/challenges/:id/complete", h.CompleteChallenge)
	secured.Post("/challenges/:id/cancel", h.CancelChallenge)

	// Participation
	secured.Post("/challenges/:id/join", h.JoinChallenge)
	secured.Post("/challenges/:id/submissions", h.SubmitEntry)

	// Voting and judging
	secured.Post("/challenges/:id/submissions/:submission_id/votes", voteLimiter.Handler(), h.Vote)
	secured.Post("/challenges/:id/submissions/:submission_id/judgment", h.ArtistJudgment)
	secured.Post("/challenges/:id/submissions/:submission_id/panel-judgment", h.PanelJudgment)

	// Owner views
	secured.Get("/challenges/:id/analytics", h.GetAnalytics)
	secured.Get("/challenges/:id/report", h.GetReport)
	secured.Get("/challenges/:id/prizes", h.GetPrizes)
	secured.Post("/challenges/:id/prizes", h.RecordPrizes)
	secured.Post("/challenges/:id/prizes/:distribution_id/retry", h.RetryPrize)

	// Live updates
	secured.Get("/challenges/:id/events", h.StreamEvents)
}

// ChallengeHandler adapts the engine to fiber.
type ChallengeHandler struct {
	Engine *services.Engine
	Hub    *services.Hub
}

func NewChallengeHandler(engine *services.Engine, hub *services.Hub) *ChallengeHandler {
	return &ChallengeHandler{Engine: engine, Hub: hub}
}
