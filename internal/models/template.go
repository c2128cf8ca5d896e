package models

import "time"

// MessageTemplate is a reusable canned reply. Global templates have no owning
// admin and are visible to every admin; personal templates only to their owner.
// Placeholder tokens in Content (e.g. {{patient_name}}) are interpolated by the
// client, not here.
type MessageTemplate struct {
	ID         int64     `json:"id"`
	AdminID    *int64    `json:"admin_id"`
	IsGlobal   bool      `json:"is_global"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
