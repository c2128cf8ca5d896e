package handlers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/services"
)

const maxAttachmentBytes = 10 << 20

type AttachmentHandler struct {
	storage services.AttachmentStorage
}

func NewAttachmentHandler(storage services.AttachmentStorage) *AttachmentHandler {
	return &AttachmentHandler{storage: storage}
}

// Upload stores a file and returns its URL; the client includes the URL in a
// later message send. Attachments are grouped per conversation folder.
func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if h.storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Attachment storage is not configured"})
	}

	conversationID := strings.TrimSpace(c.FormValue("conversation_id"))
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "conversation_id is required"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fileHeader.Size > maxAttachmentBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "Attachment exceeds 10MB limit"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read file"})
	}
	defer file.Close()

	filename := fmt.Sprintf("%s-%d-%d%s",
		role,
		actorID,
		time.Now().UnixNano(),
		filepath.Ext(fileHeader.Filename),
	)
	folder := "conversations/" + conversationID

	url, err := h.storage.Upload(c.Context(), file, filename, folder)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to store attachment", "retryable": true})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
