package repository

import (
	"context"

	"github.com/helio-trials/PatientEngageBack/internal/models"
)

const templateColumns = `
	id, admin_id, is_global, title, content, category, usage_count, created_at, updated_at
`

type TemplateRepository struct {
	db DBTX
}

func NewTemplateRepository(db DBTX) *TemplateRepository {
	return &TemplateRepository{db: db}
}

type CreateTemplateInput struct {
	AdminID  *int64
	IsGlobal bool
	Title    string
	Content  string
	Category string
}

func (r *TemplateRepository) Create(ctx context.Context, input CreateTemplateInput) (*models.MessageTemplate, error) {
	query := `
		INSERT INTO message_templates (admin_id, is_global, title, content, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + templateColumns
	return r.scanTemplate(r.db.QueryRow(ctx, query,
		input.AdminID,
		input.IsGlobal,
		input.Title,
		input.Content,
		input.Category,
	))
}

// ListVisible returns global templates plus the admin's personal ones.
func (r *TemplateRepository) ListVisible(ctx context.Context, adminID int64) ([]models.MessageTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM message_templates
		WHERE is_global = TRUE OR admin_id = $1
		ORDER BY category ASC, title ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]models.MessageTemplate, 0)
	for rows.Next() {
		var template models.MessageTemplate
		if err := rows.Scan(
			&template.ID,
			&template.AdminID,
			&template.IsGlobal,
			&template.Title,
			&template.Content,
			&template.Category,
			&template.UsageCount,
			&template.CreatedAt,
			&template.UpdatedAt,
		); err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, templateID int64) (*models.MessageTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM message_templates WHERE id = $1`
	return r.scanTemplate(r.db.QueryRow(ctx, query, templateID))
}

func (r *TemplateRepository) Update(
	ctx context.Context,
	templateID int64,
	title string,
	content string,
	category string,
) (*models.MessageTemplate, error) {
	query := `
		UPDATE message_templates
		SET title = $2, content = $3, category = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + templateColumns
	return r.scanTemplate(r.db.QueryRow(ctx, query, templateID, title, content, category))
}

func (r *TemplateRepository) IncrementUsage(ctx context.Context, templateID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE message_templates
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1
	`, templateID)
	return err
}

func (r *TemplateRepository) Delete(ctx context.Context, templateID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM message_templates WHERE id = $1`, templateID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TemplateRepository) scanTemplate(row interface{ Scan(dest ...any) error }) (*models.MessageTemplate, error) {
	var template models.MessageTemplate
	err := row.Scan(
		&template.ID,
		&template.AdminID,
		&template.IsGlobal,
		&template.Title,
		&template.Content,
		&template.Category,
		&template.UsageCount,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &template, nil
}
