package models

import "time"

const (
	MilestoneWeightLoss     = "weight_loss"
	MilestoneWeekCompletion = "week_completion"
	MilestoneGoalPercent    = "goal_percent"
)

// Milestone is a one-time celebratory event recorded when a patient crosses a
// numeric threshold. (patient_id, milestone_type, threshold) is unique.
type Milestone struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"patient_id"`
	MilestoneType string    `json:"milestone_type"`
	Threshold     int       `json:"threshold"`
	AchievedAt    time.Time `json:"achieved_at"`
}

type ProgressEntry struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	Weight    float64   `json:"weight"`
	Week      int       `json:"week"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}
