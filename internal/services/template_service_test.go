package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/repository"
	"github.com/jackc/pgx/v5"
)

type stubTemplateStore struct {
	templates      map[int64]*models.MessageTemplate
	nextID         int64
	incrementCalls []int64
	incrementErr   error
}

func newStubTemplateStore() *stubTemplateStore {
	return &stubTemplateStore{templates: make(map[int64]*models.MessageTemplate)}
}

func (s *stubTemplateStore) Create(_ context.Context, input repository.CreateTemplateInput) (*models.MessageTemplate, error) {
	s.nextID++
	template := &models.MessageTemplate{
		ID:        s.nextID,
		AdminID:   input.AdminID,
		IsGlobal:  input.IsGlobal,
		Title:     input.Title,
		Content:   input.Content,
		Category:  input.Category,
		CreatedAt: time.Now().UTC(),
	}
	s.templates[template.ID] = template
	return template, nil
}

func (s *stubTemplateStore) ListVisible(_ context.Context, adminID int64) ([]models.MessageTemplate, error) {
	visible := []models.MessageTemplate{}
	for _, template := range s.templates {
		if template.IsGlobal || (template.AdminID != nil && *template.AdminID == adminID) {
			visible = append(visible, *template)
		}
	}
	return visible, nil
}

func (s *stubTemplateStore) GetByID(_ context.Context, templateID int64) (*models.MessageTemplate, error) {
	template, ok := s.templates[templateID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *template
	return &copied, nil
}

func (s *stubTemplateStore) Update(_ context.Context, templateID int64, title, content, category string) (*models.MessageTemplate, error) {
	template, ok := s.templates[templateID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	template.Title = title
	template.Content = content
	template.Category = category
	template.UpdatedAt = time.Now().UTC()
	copied := *template
	return &copied, nil
}

func (s *stubTemplateStore) IncrementUsage(_ context.Context, templateID int64) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	s.incrementCalls = append(s.incrementCalls, templateID)
	if template, ok := s.templates[templateID]; ok {
		template.UsageCount++
	}
	return nil
}

func (s *stubTemplateStore) Delete(_ context.Context, templateID int64) (bool, error) {
	if _, ok := s.templates[templateID]; !ok {
		return false, nil
	}
	delete(s.templates, templateID)
	return true, nil
}

func TestCreateTemplateOwnership(t *testing.T) {
	store := newStubTemplateStore()
	service := NewTemplateService(store)

	personal, err := service.CreateTemplate(context.Background(), 3, TemplateInput{
		Title:    "Dosing reminder",
		Content:  "Hi {{patient_name}}, time for your weekly dose.",
		Category: "dosing",
	})
	if err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	if personal.AdminID == nil || *personal.AdminID != 3 {
		t.Errorf("personal template owner = %v, want 3", personal.AdminID)
	}

	global, err := service.CreateTemplate(context.Background(), 3, TemplateInput{
		Title:    "Welcome",
		Content:  "Welcome to the study.",
		Category: "onboarding",
		IsGlobal: true,
	})
	if err != nil {
		t.Fatalf("CreateTemplate (global) failed: %v", err)
	}
	if global.AdminID != nil {
		t.Errorf("global template owner = %v, want nil", global.AdminID)
	}
}

func TestCreateTemplateValidation(t *testing.T) {
	service := NewTemplateService(newStubTemplateStore())

	cases := []struct {
		name  string
		input TemplateInput
	}{
		{"empty title", TemplateInput{Title: "  ", Content: "body", Category: "dosing"}},
		{"empty content", TemplateInput{Title: "t", Content: "", Category: "dosing"}},
		{"empty category", TemplateInput{Title: "t", Content: "body", Category: " "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateTemplate(context.Background(), 3, tc.input); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestListTemplatesVisibility(t *testing.T) {
	store := newStubTemplateStore()
	service := NewTemplateService(store)

	mustCreate := func(adminID int64, global bool, title string) {
		t.Helper()
		_, err := service.CreateTemplate(context.Background(), adminID, TemplateInput{
			Title:    title,
			Content:  "body",
			Category: "general",
			IsGlobal: global,
		})
		if err != nil {
			t.Fatalf("CreateTemplate(%s) failed: %v", title, err)
		}
	}
	mustCreate(1, true, "global")
	mustCreate(1, false, "mine")
	mustCreate(2, false, "theirs")

	visible, err := service.ListTemplates(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("admin 1 sees %d templates, want 2: %+v", len(visible), visible)
	}
	for _, template := range visible {
		if template.Title == "theirs" {
			t.Errorf("admin 1 can see another admin's personal template")
		}
	}
}

func TestUpdateTemplatePermissions(t *testing.T) {
	store := newStubTemplateStore()
	service := NewTemplateService(store)

	personal, _ := service.CreateTemplate(context.Background(), 1, TemplateInput{Title: "mine", Content: "body", Category: "general"})
	global, _ := service.CreateTemplate(context.Background(), 1, TemplateInput{Title: "shared", Content: "body", Category: "general", IsGlobal: true})

	edit := TemplateInput{Title: "edited", Content: "new body", Category: "general"}

	if _, err := service.UpdateTemplate(context.Background(), 2, personal.ID, edit); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner edit of personal template err = %v, want ErrForbidden", err)
	}
	if _, err := service.UpdateTemplate(context.Background(), 1, personal.ID, edit); err != nil {
		t.Errorf("owner edit of personal template failed: %v", err)
	}
	if _, err := service.UpdateTemplate(context.Background(), 2, global.ID, edit); err != nil {
		t.Errorf("any-admin edit of global template failed: %v", err)
	}
	if _, err := service.UpdateTemplate(context.Background(), 1, 999, edit); !errors.Is(err, ErrNotFound) {
		t.Errorf("edit of missing template err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTemplatePermissions(t *testing.T) {
	store := newStubTemplateStore()
	service := NewTemplateService(store)

	personal, _ := service.CreateTemplate(context.Background(), 1, TemplateInput{Title: "mine", Content: "body", Category: "general"})

	if err := service.DeleteTemplate(context.Background(), 2, personal.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner delete err = %v, want ErrForbidden", err)
	}
	if err := service.DeleteTemplate(context.Background(), 1, personal.ID); err != nil {
		t.Errorf("owner delete failed: %v", err)
	}
	if err := service.DeleteTemplate(context.Background(), 1, personal.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete of missing template err = %v, want ErrNotFound", err)
	}
}

func TestRecordUsageSwallowsFailure(t *testing.T) {
	store := newStubTemplateStore()
	service := NewTemplateService(store)

	template, _ := service.CreateTemplate(context.Background(), 1, TemplateInput{Title: "mine", Content: "body", Category: "general"})

	service.RecordUsage(context.Background(), template.ID)
	service.RecordUsage(context.Background(), template.ID)
	if store.templates[template.ID].UsageCount != 2 {
		t.Errorf("usage count = %d, want 2", store.templates[template.ID].UsageCount)
	}

	store.incrementErr = errors.New("connection reset")
	service.RecordUsage(context.Background(), template.ID)

	service.RecordUsage(context.Background(), 0)
	if len(store.incrementCalls) != 2 {
		t.Errorf("increment calls = %v, want exactly the two successful ones", store.incrementCalls)
	}
}
