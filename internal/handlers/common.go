package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/services"
	"github.com/jackc/pgx/v5"
)

// actorFromLocals pulls the authenticated identity the auth middleware stored.
func actorFromLocals(c *fiber.Ctx) (int64, string, error) {
	rawID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)

	actorID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || actorID <= 0 {
		return 0, "", errors.New("invalid actor")
	}
	if role != models.RolePatient && role != models.RoleAdmin {
		return 0, "", errors.New("invalid role")
	}
	return actorID, role, nil
}

// mapServiceError translates the service error taxonomy to HTTP. Persistence
// failures are the only retryable kind and say so in the body.
func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrPersistence):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":     "Temporary storage failure, please retry",
			"retryable": true,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
