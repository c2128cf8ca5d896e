package models

import "time"

const (
	RoleAdmin   = "admin"
	RolePatient = "patient"
)

type AdminUser struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Patient struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Name              string    `json:"name"`
	Protocol          *string   `json:"protocol"`
	StartingWeight    float64   `json:"starting_weight"`
	GoalWeight        float64   `json:"goal_weight"`
	CurrentWeight     float64   `json:"current_weight"`
	CurrentWeek       int       `json:"current_week"`
	ComplianceRate    float64   `json:"compliance_rate"`
	RecentSideEffects *string   `json:"recent_side_effects"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PatientContext is the denormalized snapshot shown in the chat sidebar.
type PatientContext struct {
	PatientID         int64   `json:"patient_id"`
	Name              string  `json:"name"`
	Protocol          *string `json:"protocol"`
	StartingWeight    float64 `json:"starting_weight"`
	GoalWeight        float64 `json:"goal_weight"`
	CurrentWeight     float64 `json:"current_weight"`
	CurrentWeek       int     `json:"current_week"`
	ComplianceRate    float64 `json:"compliance_rate"`
	RecentSideEffects *string `json:"recent_side_effects"`
}
