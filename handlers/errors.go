package handlers

import (
	"context"
	"errors"

	"community-challenges/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// StatusFor maps engine errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrAuthorization), errors.Is(err, services.ErrEligibility):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrDuplicate),
		errors.Is(err, services.ErrChallengeFull):
		return fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, services.ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, services.ErrSelfVote):
		return "self_vote"
	case errors.Is(err, services.ErrDuplicateVote):
		return "duplicate_vote"
	case errors.Is(err, services.ErrChallengeFull):
		return "challenge_full"
	case errors.Is(err, services.ErrEligibility):
		return "not_eligible"
	case errors.Is(err, services.ErrValidation):
		return "validation_error"
	case errors.Is(err, services.ErrAuthorization):
		return "forbidden"
	case errors.Is(err, services.ErrNotFound):
		return "not_found"
	case errors.Is(err, services.ErrInvalidState):
		return "invalid_state"
	}
	return "internal_error"
}

func writeError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("[HTTP] ❌ request failed")
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  errorCode(err),
	})
}
