package repository

import (
	"context"
	"errors"

	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/jackc/pgx/v5"
)

type MilestoneRepository struct {
	db DBTX
}

func NewMilestoneRepository(db DBTX) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// InsertNew records a milestone once. The unique index on
// (patient_id, milestone_type, threshold) makes repeat evaluations and
// concurrent writers collapse to a single row; a conflict returns (nil, nil).
func (r *MilestoneRepository) InsertNew(
	ctx context.Context,
	patientID int64,
	milestoneType string,
	threshold int,
) (*models.Milestone, error) {
	query := `
		INSERT INTO patient_milestones (patient_id, milestone_type, threshold)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, milestone_type, threshold) DO NOTHING
		RETURNING id, patient_id, milestone_type, threshold, achieved_at
	`
	var milestone models.Milestone
	err := r.db.QueryRow(ctx, query, patientID, milestoneType, threshold).Scan(
		&milestone.ID,
		&milestone.PatientID,
		&milestone.MilestoneType,
		&milestone.Threshold,
		&milestone.AchievedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (r *MilestoneRepository) ListByPatient(ctx context.Context, patientID int64) ([]models.Milestone, error) {
	query := `
		SELECT id, patient_id, milestone_type, threshold, achieved_at
		FROM patient_milestones
		WHERE patient_id = $1
		ORDER BY achieved_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	milestones := make([]models.Milestone, 0)
	for rows.Next() {
		var milestone models.Milestone
		if err := rows.Scan(
			&milestone.ID,
			&milestone.PatientID,
			&milestone.MilestoneType,
			&milestone.Threshold,
			&milestone.AchievedAt,
		); err != nil {
			return nil, err
		}
		milestones = append(milestones, milestone)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return milestones, nil
}
