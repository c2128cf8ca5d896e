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
)

type stubProgressService struct {
	entry      *models.ProgressEntry
	milestones []models.Milestone
	logErr     error
	listErr    error

	lastPatientID int64
	lastWeight    float64
	lastWeek      int
	lastNotes     *string
}

func (s *stubProgressService) LogProgress(_ context.Context, patientID int64, weight float64, week int, notes *string) (*models.ProgressEntry, []models.Milestone, error) {
	s.lastPatientID = patientID
	s.lastWeight = weight
	s.lastWeek = week
	s.lastNotes = notes
	return s.entry, s.milestones, s.logErr
}

func (s *stubProgressService) ListProgress(_ context.Context, patientID int64, limit int) ([]models.ProgressEntry, error) {
	s.lastPatientID = patientID
	if s.entry != nil {
		return []models.ProgressEntry{*s.entry}, s.listErr
	}
	return nil, s.listErr
}

func (s *stubProgressService) ListMilestones(_ context.Context, patientID int64) ([]models.Milestone, error) {
	s.lastPatientID = patientID
	return s.milestones, s.listErr
}

func newProgressTestApp(service *stubProgressService, role, userID string) *fiber.App {
	handler := NewProgressHandler(service)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/progress", handler.LogProgress)
	app.Get("/api/v1/milestones", handler.ListMilestones)
	return app
}

func TestLogProgressReturnsNewMilestones(t *testing.T) {
	service := &stubProgressService{
		entry: &models.ProgressEntry{ID: 1, PatientID: 42, Weight: 180, Week: 8},
		milestones: []models.Milestone{
			{ID: 1, PatientID: 42, MilestoneType: "weight_loss", Threshold: 10},
		},
	}
	app := newProgressTestApp(service, "patient", "42")

	body, _ := json.Marshal(fiber.Map{"weight": 180, "week": 8, "notes": "  feeling good  "})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/progress", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastPatientID != 42 || service.lastWeight != 180 || service.lastWeek != 8 {
		t.Fatalf("unexpected forwarding: %d %.0f %d", service.lastPatientID, service.lastWeight, service.lastWeek)
	}
	if service.lastNotes == nil || *service.lastNotes != "feeling good" {
		t.Fatalf("expected trimmed notes, got %+v", service.lastNotes)
	}

	var payload struct {
		NewMilestones []map[string]any `json:"new_milestones"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(payload.NewMilestones) != 1 {
		t.Fatalf("expected 1 new milestone, got %d", len(payload.NewMilestones))
	}
}

func TestLogProgressRejectsAdmins(t *testing.T) {
	service := &stubProgressService{}
	app := newProgressTestApp(service, "admin", "7")

	body, _ := json.Marshal(fiber.Map{"weight": 180, "week": 8})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/progress", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestListMilestonesScopesPatientToSelf(t *testing.T) {
	service := &stubProgressService{}
	app := newProgressTestApp(service, "patient", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/milestones?patient_id=99", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPatientID != 42 {
		t.Fatalf("patient query was not pinned to their own id: %d", service.lastPatientID)
	}
}

func TestListMilestonesAdminNeedsPatientID(t *testing.T) {
	service := &stubProgressService{}
	app := newProgressTestApp(service, "admin", "7")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/milestones", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/milestones?patient_id=42", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPatientID != 42 {
		t.Fatalf("expected patient 42, got %d", service.lastPatientID)
	}
}
