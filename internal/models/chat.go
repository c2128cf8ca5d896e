package models

import "time"

const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
)

const (
	MessageTypeGeneral       = "general"
	MessageTypeDosing        = "dosing"
	MessageTypeSafety        = "safety"
	MessageTypeProgress      = "progress"
	MessageTypeAdminResponse = "admin_response"
)

const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type Conversation struct {
	ID                 int64      `json:"id"`
	PatientID          int64      `json:"patient_id"`
	AdminID            int64      `json:"admin_id"`
	Status             string     `json:"status"`
	PatientUnreadCount int        `json:"patient_unread_count"`
	AdminUnreadCount   int        `json:"admin_unread_count"`
	LastMessageAt      *time.Time `json:"last_message_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// UnreadFor returns the stored unread counter for one side of the thread.
func (c *Conversation) UnreadFor(role string) int {
	if role == RolePatient {
		return c.PatientUnreadCount
	}
	return c.AdminUnreadCount
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderRole     string    `json:"sender_role"`
	RecipientID    int64     `json:"recipient_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	Priority       string    `json:"priority"`
	ReadStatus     bool      `json:"read_status"`
	Attachments    []string  `json:"attachments"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeGeneral, MessageTypeDosing, MessageTypeSafety, MessageTypeProgress, MessageTypeAdminResponse:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
