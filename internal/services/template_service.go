package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/repository"
	"github.com/jackc/pgx/v5"
)

type templateStore interface {
	Create(ctx context.Context, input repository.CreateTemplateInput) (*models.MessageTemplate, error)
	ListVisible(ctx context.Context, adminID int64) ([]models.MessageTemplate, error)
	GetByID(ctx context.Context, templateID int64) (*models.MessageTemplate, error)
	Update(ctx context.Context, templateID int64, title, content, category string) (*models.MessageTemplate, error)
	IncrementUsage(ctx context.Context, templateID int64) error
	Delete(ctx context.Context, templateID int64) (bool, error)
}

type TemplateService struct {
	repo templateStore
}

func NewTemplateService(repo templateStore) *TemplateService {
	return &TemplateService{repo: repo}
}

type TemplateInput struct {
	Title    string
	Content  string
	Category string
	IsGlobal bool
}

func (s *TemplateService) ListTemplates(ctx context.Context, adminID int64) ([]models.MessageTemplate, error) {
	if adminID <= 0 {
		return nil, ErrInvalidInput
	}
	templates, err := s.repo.ListVisible(ctx, adminID)
	if err != nil {
		return nil, asPersistence("list templates", err)
	}
	return templates, nil
}

func (s *TemplateService) CreateTemplate(
	ctx context.Context,
	adminID int64,
	input TemplateInput,
) (*models.MessageTemplate, error) {
	if adminID <= 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	category := strings.TrimSpace(input.Category)
	if title == "" || content == "" || category == "" {
		return nil, ErrInvalidInput
	}

	createInput := repository.CreateTemplateInput{
		IsGlobal: input.IsGlobal,
		Title:    title,
		Content:  content,
		Category: category,
	}
	if !input.IsGlobal {
		createInput.AdminID = &adminID
	}

	template, err := s.repo.Create(ctx, createInput)
	if err != nil {
		return nil, asPersistence("create template", err)
	}
	return template, nil
}

// UpdateTemplate edits a template. Personal templates are editable only by
// their owner; global ones by any admin.
func (s *TemplateService) UpdateTemplate(
	ctx context.Context,
	adminID int64,
	templateID int64,
	input TemplateInput,
) (*models.MessageTemplate, error) {
	if adminID <= 0 || templateID <= 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	category := strings.TrimSpace(input.Category)
	if title == "" || content == "" || category == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.repo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, asPersistence("load template", err)
	}
	if !existing.IsGlobal && (existing.AdminID == nil || *existing.AdminID != adminID) {
		return nil, ErrForbidden
	}

	template, err := s.repo.Update(ctx, templateID, title, content, category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, asPersistence("update template", err)
	}
	return template, nil
}

// RecordUsage is fire-and-forget telemetry: a failed increment is logged and
// never surfaced to the caller.
func (s *TemplateService) RecordUsage(ctx context.Context, templateID int64) {
	if templateID <= 0 {
		return
	}
	if err := s.repo.IncrementUsage(ctx, templateID); err != nil {
		log.Printf("template usage increment failed for %d: %v", templateID, err)
	}
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, adminID int64, templateID int64) error {
	if adminID <= 0 || templateID <= 0 {
		return ErrInvalidInput
	}

	existing, err := s.repo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return asPersistence("load template", err)
	}
	if !existing.IsGlobal && (existing.AdminID == nil || *existing.AdminID != adminID) {
		return ErrForbidden
	}

	deleted, err := s.repo.Delete(ctx, templateID)
	if err != nil {
		return asPersistence("delete template", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
