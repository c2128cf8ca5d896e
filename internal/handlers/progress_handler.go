package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/models"
)

type progressFacade interface {
	LogProgress(ctx context.Context, patientID int64, weight float64, week int, notes *string) (*models.ProgressEntry, []models.Milestone, error)
	ListProgress(ctx context.Context, patientID int64, limit int) ([]models.ProgressEntry, error)
	ListMilestones(ctx context.Context, patientID int64) ([]models.Milestone, error)
}

type ProgressHandler struct {
	service progressFacade
}

func NewProgressHandler(service progressFacade) *ProgressHandler {
	return &ProgressHandler{service: service}
}

type logProgressRequest struct {
	Weight float64 `json:"weight"`
	Week   int     `json:"week"`
	Notes  string  `json:"notes"`
}

// LogProgress records a patient observation and returns whatever milestones
// it unlocked so the client can celebrate them right away.
func (h *ProgressHandler) LogProgress(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != models.RolePatient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req logProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var notes *string
	if trimmed := strings.TrimSpace(req.Notes); trimmed != "" {
		notes = &trimmed
	}

	entry, milestones, err := h.service.LogProgress(c.Context(), actorID, req.Weight, req.Week, notes)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"entry":          entry,
		"new_milestones": milestones,
	})
}

// ListProgress serves recent observations for the patient themselves, or for
// any patient when an admin asks via query parameter.
func (h *ProgressHandler) ListProgress(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	patientID := actorID
	if role == models.RoleAdmin {
		patientID, err = strconv.ParseInt(c.Query("patient_id"), 10, 64)
		if err != nil || patientID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid patient id"})
		}
	}

	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	entries, err := h.service.ListProgress(c.Context(), patientID, limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"entries": entries})
}

// ListMilestones serves a patient their own history; admins may ask for any
// patient via query parameter.
func (h *ProgressHandler) ListMilestones(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	patientID := actorID
	if role == models.RoleAdmin {
		patientID, err = strconv.ParseInt(c.Query("patient_id"), 10, 64)
		if err != nil || patientID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid patient id"})
		}
	}

	milestones, err := h.service.ListMilestones(c.Context(), patientID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"milestones": milestones})
}
