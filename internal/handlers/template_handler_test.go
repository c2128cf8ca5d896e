package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/services"
)

type stubTemplateService struct {
	listResult   []models.MessageTemplate
	listErr      error
	createResult *models.MessageTemplate
	createErr    error
	updateResult *models.MessageTemplate
	updateErr    error
	deleteErr    error

	lastAdminID    int64
	lastTemplateID int64
	lastInput      services.TemplateInput
	usageCalls     []int64
}

func (s *stubTemplateService) ListTemplates(_ context.Context, adminID int64) ([]models.MessageTemplate, error) {
	s.lastAdminID = adminID
	return s.listResult, s.listErr
}

func (s *stubTemplateService) CreateTemplate(_ context.Context, adminID int64, input services.TemplateInput) (*models.MessageTemplate, error) {
	s.lastAdminID = adminID
	s.lastInput = input
	return s.createResult, s.createErr
}

func (s *stubTemplateService) UpdateTemplate(_ context.Context, adminID int64, templateID int64, input services.TemplateInput) (*models.MessageTemplate, error) {
	s.lastAdminID = adminID
	s.lastTemplateID = templateID
	s.lastInput = input
	return s.updateResult, s.updateErr
}

func (s *stubTemplateService) RecordUsage(_ context.Context, templateID int64) {
	s.usageCalls = append(s.usageCalls, templateID)
}

func (s *stubTemplateService) DeleteTemplate(_ context.Context, adminID int64, templateID int64) error {
	s.lastAdminID = adminID
	s.lastTemplateID = templateID
	return s.deleteErr
}

func newTemplateTestApp(service *stubTemplateService, role, userID string) *fiber.App {
	handler := NewTemplateHandler(service)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/api/v1/templates", handler.ListTemplates)
	app.Post("/api/v1/templates", handler.CreateTemplate)
	app.Put("/api/v1/templates/:id", handler.UpdateTemplate)
	app.Post("/api/v1/templates/:id/use", handler.RecordUsage)
	app.Delete("/api/v1/templates/:id", handler.DeleteTemplate)
	return app
}

func TestTemplateEndpointsRejectPatients(t *testing.T) {
	service := &stubTemplateService{}
	app := newTemplateTestApp(service, "patient", "42")

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/templates"},
		{http.MethodPost, "/api/v1/templates"},
		{http.MethodPut, "/api/v1/templates/3"},
		{http.MethodPost, "/api/v1/templates/3/use"},
		{http.MethodDelete, "/api/v1/templates/3"},
	}
	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test %s %s: %v", route.method, route.path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s %s: expected 403, got %d", route.method, route.path, resp.StatusCode)
		}
	}
	if len(service.usageCalls) != 0 {
		t.Errorf("patient reached RecordUsage: %v", service.usageCalls)
	}
}

func TestCreateTemplateForwardsInput(t *testing.T) {
	adminID := int64(7)
	service := &stubTemplateService{
		createResult: &models.MessageTemplate{ID: 5, AdminID: &adminID, Title: "Check-in"},
	}
	app := newTemplateTestApp(service, "admin", "7")

	body, _ := json.Marshal(fiber.Map{
		"title":     "Check-in",
		"content":   "How is week {{week}} going?",
		"category":  "check_in",
		"is_global": false,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastAdminID != 7 {
		t.Fatalf("expected admin 7, got %d", service.lastAdminID)
	}
	if service.lastInput.Title != "Check-in" || service.lastInput.Category != "check_in" {
		t.Fatalf("unexpected input: %+v", service.lastInput)
	}
}

func TestUpdateTemplateMapsForbidden(t *testing.T) {
	service := &stubTemplateService{updateErr: services.ErrForbidden}
	app := newTemplateTestApp(service, "admin", "2")

	body, _ := json.Marshal(fiber.Map{"title": "t", "content": "c", "category": "general"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/templates/3", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if service.lastTemplateID != 3 {
		t.Fatalf("expected template 3, got %d", service.lastTemplateID)
	}
}

func TestRecordUsageAlwaysAcknowledges(t *testing.T) {
	service := &stubTemplateService{}
	app := newTemplateTestApp(service, "admin", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates/11/use", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(service.usageCalls) != 1 || service.usageCalls[0] != 11 {
		t.Fatalf("usage calls = %v, want [11]", service.usageCalls)
	}
}

func TestDeleteTemplateRejectsBadID(t *testing.T) {
	service := &stubTemplateService{}
	app := newTemplateTestApp(service, "admin", "7")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/templates/abc", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
