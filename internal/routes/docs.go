package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/config"
)

type endpointDoc struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Desc   string `json:"description"`
}

var endpointIndex = []endpointDoc{
	{"POST", "/api/auth/login", "Authenticate as admin or patient, returns JWT"},
	{"GET", "/api/auth/me", "Current account claims"},
	{"GET", "/api/v1/conversations", "List conversations for the caller"},
	{"POST", "/api/v1/conversations", "Create or resume an active conversation"},
	{"GET", "/api/v1/conversations/:id/messages", "Paginated message history, newest first"},
	{"POST", "/api/v1/conversations/:id/messages", "Send a message"},
	{"POST", "/api/v1/conversations/:id/read", "Mark the conversation read for the caller"},
	{"POST", "/api/v1/conversations/:id/archive", "Archive a conversation (admin)"},
	{"GET", "/api/v1/templates", "Templates visible to the admin"},
	{"POST", "/api/v1/templates", "Create a template"},
	{"PUT", "/api/v1/templates/:id", "Update a template"},
	{"POST", "/api/v1/templates/:id/use", "Record template usage"},
	{"DELETE", "/api/v1/templates/:id", "Delete a template"},
	{"POST", "/api/v1/progress", "Log a weight/week observation (patient)"},
	{"GET", "/api/v1/progress", "Recent progress entries"},
	{"GET", "/api/v1/milestones", "Milestone history"},
	{"GET", "/api/v1/patients", "Patient roster (admin)"},
	{"POST", "/api/v1/patients", "Enroll a patient (admin)"},
	{"GET", "/api/v1/patients/:id/context", "Chat sidebar snapshot for a patient (admin)"},
	{"POST", "/api/v1/attachments", "Upload a message attachment"},
	{"GET", "/api/v1/ws", "WebSocket message stream"},
}

// registerDocs exposes a machine-readable route index outside production.
func registerDocs(api fiber.Router, cfg *config.Config) {
	if !cfg.DocsEnabled() {
		return
	}
	api.Get("/docs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"endpoints": endpointIndex})
	})
}
