package handlers

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/repository"
	"github.com/helio-trials/PatientEngageBack/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type patientRoster interface {
	Create(ctx context.Context, input repository.CreatePatientInput) (*models.Patient, error)
	List(ctx context.Context, limit, offset int) ([]models.Patient, int, error)
	GetContext(ctx context.Context, id int64) (*models.PatientContext, error)
}

type PatientHandler struct {
	repo patientRoster
}

func NewPatientHandler(repo patientRoster) *PatientHandler {
	return &PatientHandler{repo: repo}
}

type enrollPatientRequest struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Name           string  `json:"name"`
	Protocol       string  `json:"protocol"`
	StartingWeight float64 `json:"starting_weight"`
	GoalWeight     float64 `json:"goal_weight"`
}

// EnrollPatient provisions a trial participant account. Admin only.
func (h *PatientHandler) EnrollPatient(c *fiber.Ctx) error {
	if _, err := adminFromLocals(c); err != nil {
		return respondAuthError(c, err)
	}

	var req enrollPatientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name and a password of at least 8 characters are required"})
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to enroll patient"})
	}

	input := repository.CreatePatientInput{
		Email:          strings.ToLower(parsedEmail.Address),
		PasswordHash:   hash,
		Name:           name,
		StartingWeight: req.StartingWeight,
		GoalWeight:     req.GoalWeight,
	}
	if protocol := strings.TrimSpace(req.Protocol); protocol != "" {
		input.Protocol = &protocol
	}

	patient, err := h.repo.Create(c.Context(), input)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already enrolled"})
		}
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"patient": patient})
}

// ListPatients is the admin roster, name-ordered.
func (h *PatientHandler) ListPatients(c *fiber.Ctx) error {
	if _, err := adminFromLocals(c); err != nil {
		return respondAuthError(c, err)
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	patients, total, err := h.repo.List(c.Context(), limit, (page-1)*limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"patients":   patients,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

// GetPatientContext serves the denormalized sidebar snapshot for a chat.
func (h *PatientHandler) GetPatientContext(c *fiber.Ctx) error {
	if _, err := adminFromLocals(c); err != nil {
		return respondAuthError(c, err)
	}

	patientID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || patientID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid patient id"})
	}

	context, err := h.repo.GetContext(c.Context(), patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Patient not found"})
		}
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"context": context})
}
