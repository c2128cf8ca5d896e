package services

import (
	"context"
	"errors"

	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/jackc/pgx/v5"
)

// Fixed threshold ladders. A milestone fires the first time the metric reaches
// the rung and never again for that patient.
var (
	weightLossLadder  = []float64{5, 10, 15, 20, 25, 30}
	weekLadder        = []int{4, 8, 12, 16, 20, 24}
	goalPercentLadder = []int{25, 50, 75, 100}
)

type milestoneStore interface {
	InsertNew(ctx context.Context, patientID int64, milestoneType string, threshold int) (*models.Milestone, error)
	ListByPatient(ctx context.Context, patientID int64) ([]models.Milestone, error)
}

type progressStore interface {
	Create(ctx context.Context, patientID int64, weight float64, week int, notes *string) (*models.ProgressEntry, error)
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]models.ProgressEntry, error)
}

type patientProgressWriter interface {
	patientReader
	UpdateProgress(ctx context.Context, id int64, weight float64, week int) error
}

type MilestoneService struct {
	milestoneRepo milestoneStore
	progressRepo  progressStore
	patientRepo   patientProgressWriter
}

func NewMilestoneService(
	milestoneRepo milestoneStore,
	progressRepo progressStore,
	patientRepo patientProgressWriter,
) *MilestoneService {
	return &MilestoneService{
		milestoneRepo: milestoneRepo,
		progressRepo:  progressRepo,
		patientRepo:   patientRepo,
	}
}

type Observation struct {
	Weight float64
	Week   int
}

type milestoneCandidate struct {
	Type      string
	Threshold int
}

// crossedMilestones computes every ladder rung the observation reaches. Pure;
// deduplication against history happens at insert time via the unique index.
func crossedMilestones(patient *models.Patient, obs Observation) []milestoneCandidate {
	candidates := make([]milestoneCandidate, 0)

	lost := patient.StartingWeight - obs.Weight
	for _, threshold := range weightLossLadder {
		if lost >= threshold {
			candidates = append(candidates, milestoneCandidate{models.MilestoneWeightLoss, int(threshold)})
		}
	}

	for _, week := range weekLadder {
		if obs.Week >= week {
			candidates = append(candidates, milestoneCandidate{models.MilestoneWeekCompletion, week})
		}
	}

	if span := patient.StartingWeight - patient.GoalWeight; span > 0 {
		percent := lost / span * 100
		for _, rung := range goalPercentLadder {
			if percent >= float64(rung) {
				candidates = append(candidates, milestoneCandidate{models.MilestoneGoalPercent, rung})
			}
		}
	}

	return candidates
}

// Evaluate emits one milestone per threshold crossed that has not previously
// been recorded for the patient. Re-running with the same inputs emits nothing.
func (s *MilestoneService) Evaluate(
	ctx context.Context,
	patient *models.Patient,
	obs Observation,
) ([]models.Milestone, error) {
	emitted := make([]models.Milestone, 0)
	for _, candidate := range crossedMilestones(patient, obs) {
		milestone, err := s.milestoneRepo.InsertNew(ctx, patient.ID, candidate.Type, candidate.Threshold)
		if err != nil {
			return nil, asPersistence("record milestone", err)
		}
		if milestone != nil {
			emitted = append(emitted, *milestone)
		}
	}
	return emitted, nil
}

// LogProgress stores a weight/week observation, moves the patient snapshot
// forward, and returns any milestones the observation unlocked.
func (s *MilestoneService) LogProgress(
	ctx context.Context,
	patientID int64,
	weight float64,
	week int,
	notes *string,
) (*models.ProgressEntry, []models.Milestone, error) {
	if patientID <= 0 || weight <= 0 || week <= 0 {
		return nil, nil, ErrInvalidInput
	}

	patient, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, asPersistence("load patient", err)
	}

	entry, err := s.progressRepo.Create(ctx, patientID, weight, week, notes)
	if err != nil {
		return nil, nil, asPersistence("insert progress entry", err)
	}

	if err := s.patientRepo.UpdateProgress(ctx, patientID, weight, week); err != nil {
		return nil, nil, asPersistence("update patient snapshot", err)
	}

	milestones, err := s.Evaluate(ctx, patient, Observation{Weight: weight, Week: week})
	if err != nil {
		return nil, nil, err
	}

	return entry, milestones, nil
}

// ListProgress returns the most recent observations, newest first.
func (s *MilestoneService) ListProgress(ctx context.Context, patientID int64, limit int) ([]models.ProgressEntry, error) {
	if patientID <= 0 || limit <= 0 {
		return nil, ErrInvalidInput
	}
	entries, err := s.progressRepo.ListByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, asPersistence("list progress", err)
	}
	return entries, nil
}

func (s *MilestoneService) ListMilestones(ctx context.Context, patientID int64) ([]models.Milestone, error) {
	if patientID <= 0 {
		return nil, ErrInvalidInput
	}
	milestones, err := s.milestoneRepo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, asPersistence("list milestones", err)
	}
	return milestones, nil
}
