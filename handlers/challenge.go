package handlers

import (
	"community-challenges/middleware"
	"community-challenges/models"
	"community-challenges/services"

	"github.com/gofiber/fiber/v2"
)

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
}

// requireOwner loads the challenge and checks the caller owns it.
func (h *ChallengeHandler) requireOwner(c *fiber.Ctx, op string) (*models.Challenge, error) {
	challenge, err := h.Engine.GetChallenge(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if challenge.ArtistID != middleware.UserID(c) {
		return nil, &services.ChallengeError{Kind: services.ErrAuthorization, Op: op, Msg: "only the challenge owner can do this"}
	}
	return challenge, nil
}

func (h *ChallengeHandler) GetActiveChallenges(c *fiber.Ctx) error {
	challenges := h.Engine.GetActiveChallenges(c.UserContext(), c.Query("artist_id"))
	return c.JSON(fiber.Map{"challenges": challenges, "count": len(challenges)})
}

func (h *ChallengeHandler) GetTemplates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"templates": services.Templates()})
}

func (h *ChallengeHandler) GetChallenge(c *fiber.Ctx) error {
	challenge, err := h.Engine.GetChallenge(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(challenge)
}

func (h *ChallengeHandler) GetLeaderboard(c *fiber.Ctx) error {
	entries, err := h.Engine.GetLeaderboard(c.UserContext(), c.Params("id"), c.QueryInt("limit", 10))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"leaderboard": entries})
}

func (h *ChallengeHandler) ListSubmissions(c *fiber.Ctx) error {
	subs, err := h.Engine.ListSubmissions(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"submissions": subs, "count": len(subs)})
}

func (h *ChallengeHandler) GetSubmission(c *fiber.Ctx) error {
	sub, err := h.Engine.GetSubmission(c.UserContext(), c.Params("submission_id"))
	if err != nil {
		return writeError(c, err)
	}
	if sub.ChallengeID != c.Params("id") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "submission not found in this challenge"})
	}
	return c.JSON(sub)
}

func (h *ChallengeHandler) RecordView(c *fiber.Ctx) error {
	views, err := h.Engine.RecordView(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"views": views})
}

func (h *ChallengeHandler) CreateChallenge(c *fiber.Ctx) error {
	var in services.ChallengeInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	challenge, err := h.Engine.CreateChallenge(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

func (h *ChallengeHandler) CreateFromTemplate(c *fiber.Ctx) error {
	var in services.ChallengeInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
	}
	challenge, err := h.Engine.CreateFromTemplate(c.UserContext(), middleware.UserID(c), c.Params("template_id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

func (h *ChallengeHandler) LaunchChallenge(c *fiber.Ctx) error {
	if _, err := h.requireOwner(c, "launch challenge"); err != nil {
		return writeError(c, err)
	}
	challenge, err := h.Engine.LaunchChallenge(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(challenge)
}

func (h *ChallengeHandler) CompleteChallenge(c *fiber.Ctx) error {
	if _, err := h.requireOwner(c, "complete challenge"); err != nil {
		return writeError(c, err)
	}
	challenge, err := h.Engine.CompleteChallenge(c.UserContext(), c.Params("id"))
	if err != nil {
		if challenge != nil {
			// Completed, but a downstream step failed.
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"challenge": challenge, "warning": err.Error()})
		}
		return writeError(c, err)
	}
	return c.JSON(challenge)
}

func (h *ChallengeHandler) CancelChallenge(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
	}
	challenge, err := h.Engine.CancelChallenge(c.UserContext(), c.Params("id"), middleware.UserID(c), req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(challenge)
}

func (h *ChallengeHandler) JoinChallenge(c *fiber.Ctx) error {
	var fallback models.Profile
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&fallback); err != nil {
			return badBody(c, err)
		}
	}
	userID := middleware.UserID(c)
	profile := h.Engine.ResolveProfile(c.UserContext(), userID, fallback)

	participant, err := h.Engine.JoinChallenge(c.UserContext(), c.Params("id"), userID, profile)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(participant)
}

func (h *ChallengeHandler) SubmitEntry(c *fiber.Ctx) error {
	var in services.SubmissionInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	sub, err := h.Engine.SubmitEntry(c.UserContext(), c.Params("id"), middleware.UserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (h *ChallengeHandler) Vote(c *fiber.Ctx) error {
	var in services.VoteInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	vote, err := h.Engine.VoteOnSubmission(c.UserContext(), c.Params("id"), c.Params("submission_id"), middleware.UserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(vote)
}

func (h *ChallengeHandler) ArtistJudgment(c *fiber.Ctx) error {
	var in services.JudgmentInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	sub, err := h.Engine.ArtistJudgeSubmission(c.UserContext(), c.Params("id"), c.Params("submission_id"), middleware.UserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sub)
}

func (h *ChallengeHandler) PanelJudgment(c *fiber.Ctx) error {
	var in services.JudgmentInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	sub, err := h.Engine.PanelJudgeSubmission(c.UserContext(), c.Params("id"), c.Params("submission_id"), middleware.UserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sub)
}

func (h *ChallengeHandler) GetAnalytics(c *fiber.Ctx) error {
	if _, err := h.requireOwner(c, "analytics"); err != nil {
		return writeError(c, err)
	}
	out, err := h.Engine.GetChallengeAnalytics(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func (h *ChallengeHandler) GetReport(c *fiber.Ctx) error {
	if _, err := h.requireOwner(c, "report"); err != nil {
		return writeError(c, err)
	}
	report, err := h.Engine.GetReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (h *ChallengeHandler) GetPrizes(c *fiber.Ctx) error {
	if _, err := h.requireOwner(c, "prizes"); err != nil {
		return writeError(c, err)
	}
	records, err := h.Engine.GetPrizeDistributions(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"distributions": records})
}

func (h *ChallengeHandler) RecordPrizes(c *fiber.Ctx) error {
	if _, err := h.requireOwner(c, "record prizes"); err != nil {
		return writeError(c, err)
	}
	records, err := h.Engine.RecordPrizes(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"distributions": records})
}

func (h *ChallengeHandler) RetryPrize(c *fiber.Ctx) error {
	if _, err := h.requireOwner(c, "retry distribution"); err != nil {
		return writeError(c, err)
	}
	record, err := h.Engine.RetryDistribution(c.UserContext(), c.Params("id"), c.Params("distribution_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(record)
}
