package repository

import (
	"context"

	"github.com/helio-trials/PatientEngageBack/internal/models"
)

type ProgressRepository struct {
	db DBTX
}

func NewProgressRepository(db DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Create(
	ctx context.Context,
	patientID int64,
	weight float64,
	week int,
	notes *string,
) (*models.ProgressEntry, error) {
	query := `
		INSERT INTO progress_entries (patient_id, weight, week, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, patient_id, weight, week, notes, created_at
	`
	var entry models.ProgressEntry
	err := r.db.QueryRow(ctx, query, patientID, weight, week, notes).Scan(
		&entry.ID,
		&entry.PatientID,
		&entry.Weight,
		&entry.Week,
		&entry.Notes,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ProgressRepository) ListByPatient(ctx context.Context, patientID int64, limit int) ([]models.ProgressEntry, error) {
	query := `
		SELECT id, patient_id, weight, week, notes, created_at
		FROM progress_entries
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.ProgressEntry, 0)
	for rows.Next() {
		var entry models.ProgressEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.PatientID,
			&entry.Weight,
			&entry.Week,
			&entry.Notes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
