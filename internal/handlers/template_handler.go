package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/services"
)

type templateFacade interface {
	ListTemplates(ctx context.Context, adminID int64) ([]models.MessageTemplate, error)
	CreateTemplate(ctx context.Context, adminID int64, input services.TemplateInput) (*models.MessageTemplate, error)
	UpdateTemplate(ctx context.Context, adminID int64, templateID int64, input services.TemplateInput) (*models.MessageTemplate, error)
	RecordUsage(ctx context.Context, templateID int64)
	DeleteTemplate(ctx context.Context, adminID int64, templateID int64) error
}

type TemplateHandler struct {
	service templateFacade
}

func NewTemplateHandler(service templateFacade) *TemplateHandler {
	return &TemplateHandler{service: service}
}

type templateRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	IsGlobal bool   `json:"is_global"`
}

// adminFromLocals rejects non-admin callers; templates are admin tooling.
func adminFromLocals(c *fiber.Ctx) (int64, error) {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return 0, fiber.ErrUnauthorized
	}
	if role != models.RoleAdmin {
		return 0, fiber.ErrForbidden
	}
	return actorID, nil
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	adminID, err := adminFromLocals(c)
	if err != nil {
		return respondAuthError(c, err)
	}

	templates, err := h.service.ListTemplates(c.Context(), adminID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	adminID, err := adminFromLocals(c)
	if err != nil {
		return respondAuthError(c, err)
	}

	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	template, err := h.service.CreateTemplate(c.Context(), adminID, services.TemplateInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		IsGlobal: req.IsGlobal,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"template": template})
}

func (h *TemplateHandler) UpdateTemplate(c *fiber.Ctx) error {
	adminID, err := adminFromLocals(c)
	if err != nil {
		return respondAuthError(c, err)
	}

	templateID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || templateID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid template id"})
	}

	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	template, err := h.service.UpdateTemplate(c.Context(), adminID, templateID, services.TemplateInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		IsGlobal: req.IsGlobal,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"template": template})
}

// RecordUsage acknowledges immediately; the increment is telemetry and its
// failure never reaches the client.
func (h *TemplateHandler) RecordUsage(c *fiber.Ctx) error {
	if _, err := adminFromLocals(c); err != nil {
		return respondAuthError(c, err)
	}

	templateID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || templateID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid template id"})
	}

	h.service.RecordUsage(c.Context(), templateID)
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *TemplateHandler) DeleteTemplate(c *fiber.Ctx) error {
	adminID, err := adminFromLocals(c)
	if err != nil {
		return respondAuthError(c, err)
	}

	templateID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || templateID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid template id"})
	}

	if err := h.service.DeleteTemplate(c.Context(), adminID, templateID); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

func respondAuthError(c *fiber.Ctx, err error) error {
	if err == fiber.ErrForbidden {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}
