package handlers

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/pkg/utils"
	"github.com/jackc/pgx/v5"
)

type adminAccounts interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	GetByID(ctx context.Context, id int64) (*models.AdminUser, error)
}

type patientAccounts interface {
	GetByEmail(ctx context.Context, email string) (*models.Patient, error)
	GetByID(ctx context.Context, id int64) (*models.Patient, error)
}

type AuthHandler struct {
	adminRepo   adminAccounts
	patientRepo patientAccounts
	jwtSecret   string
}

func NewAuthHandler(adminRepo adminAccounts, patientRepo patientAccounts, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		adminRepo:   adminRepo,
		patientRepo: patientRepo,
		jwtSecret:   jwtSecret,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email"})
	}
	email := strings.ToLower(parsedEmail.Address)

	if req.Role != models.RoleAdmin && req.Role != models.RolePatient {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid role"})
	}

	var id int64
	var passwordHash string
	if req.Role == models.RoleAdmin {
		admin, err := h.adminRepo.GetByEmail(c.Context(), email)
		if err != nil {
			return loginFailure(c, err)
		}
		id, passwordHash = admin.ID, admin.PasswordHash
	} else {
		patient, err := h.patientRepo.GetByEmail(c.Context(), email)
		if err != nil {
			return loginFailure(c, err)
		}
		id, passwordHash = patient.ID, patient.PasswordHash
	}

	if !utils.CheckPassword(req.Password, passwordHash) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := utils.GenerateToken(strconv.FormatInt(id, 10), req.Role, h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to issue token"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"role":  req.Role,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if role == models.RoleAdmin {
		admin, err := h.adminRepo.GetByID(c.Context(), actorID)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(fiber.Map{"role": role, "admin": admin})
	}

	patient, err := h.patientRepo.GetByID(c.Context(), actorID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"role": role, "patient": patient})
}

func loginFailure(c *fiber.Ctx, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to log in"})
}
