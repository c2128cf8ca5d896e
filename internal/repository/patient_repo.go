package repository

import (
	"context"

	"github.com/helio-trials/PatientEngageBack/internal/models"
)

const patientColumns = `
	id, email, password_hash, name, protocol,
	starting_weight, goal_weight, current_weight, current_week,
	compliance_rate, recent_side_effects, created_at, updated_at
`

type PatientRepository struct {
	db DBTX
}

func NewPatientRepository(db DBTX) *PatientRepository {
	return &PatientRepository{db: db}
}

type CreatePatientInput struct {
	Email          string
	PasswordHash   string
	Name           string
	Protocol       *string
	StartingWeight float64
	GoalWeight     float64
}

func (r *PatientRepository) Create(ctx context.Context, input CreatePatientInput) (*models.Patient, error) {
	query := `
		INSERT INTO patients (email, password_hash, name, protocol, starting_weight, goal_weight, current_weight)
		VALUES ($1, $2, $3, $4, $5, $6, $5)
		RETURNING ` + patientColumns
	return r.scanPatient(r.db.QueryRow(ctx, query,
		input.Email,
		input.PasswordHash,
		input.Name,
		input.Protocol,
		input.StartingWeight,
		input.GoalWeight,
	))
}

func (r *PatientRepository) GetByEmail(ctx context.Context, email string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE email = $1`
	return r.scanPatient(r.db.QueryRow(ctx, query, email))
}

func (r *PatientRepository) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return r.scanPatient(r.db.QueryRow(ctx, query, id))
}

func (r *PatientRepository) List(ctx context.Context, limit, offset int) ([]models.Patient, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + patientColumns + `
		FROM patients
		ORDER BY name ASC, id ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	patients := make([]models.Patient, 0)
	for rows.Next() {
		var patient models.Patient
		if err := rows.Scan(
			&patient.ID,
			&patient.Email,
			&patient.PasswordHash,
			&patient.Name,
			&patient.Protocol,
			&patient.StartingWeight,
			&patient.GoalWeight,
			&patient.CurrentWeight,
			&patient.CurrentWeek,
			&patient.ComplianceRate,
			&patient.RecentSideEffects,
			&patient.CreatedAt,
			&patient.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		patients = append(patients, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return patients, total, nil
}

// UpdateProgress records the latest observation on the patient row itself so the
// sidebar projection stays current without scanning progress_entries.
func (r *PatientRepository) UpdateProgress(ctx context.Context, id int64, weight float64, week int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE patients
		SET current_weight = $2, current_week = $3, updated_at = NOW()
		WHERE id = $1
	`, id, weight, week)
	return err
}

func (r *PatientRepository) GetContext(ctx context.Context, id int64) (*models.PatientContext, error) {
	query := `
		SELECT id, name, protocol, starting_weight, goal_weight, current_weight,
		       current_week, compliance_rate, recent_side_effects
		FROM patients
		WHERE id = $1
	`
	var pc models.PatientContext
	err := r.db.QueryRow(ctx, query, id).Scan(
		&pc.PatientID,
		&pc.Name,
		&pc.Protocol,
		&pc.StartingWeight,
		&pc.GoalWeight,
		&pc.CurrentWeight,
		&pc.CurrentWeek,
		&pc.ComplianceRate,
		&pc.RecentSideEffects,
	)
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (r *PatientRepository) scanPatient(row interface{ Scan(dest ...any) error }) (*models.Patient, error) {
	var patient models.Patient
	err := row.Scan(
		&patient.ID,
		&patient.Email,
		&patient.PasswordHash,
		&patient.Name,
		&patient.Protocol,
		&patient.StartingWeight,
		&patient.GoalWeight,
		&patient.CurrentWeight,
		&patient.CurrentWeek,
		&patient.ComplianceRate,
		&patient.RecentSideEffects,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &patient, nil
}
