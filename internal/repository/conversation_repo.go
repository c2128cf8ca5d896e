package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/helio-trials/PatientEngageBack/internal/models"
)

const conversationColumns = `
	id, patient_id, admin_id, status,
	patient_unread_count, admin_unread_count,
	last_message_at, created_at, updated_at
`

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet returns the active conversation for the pair, inserting one on
// first contact. The partial unique index on (patient_id, admin_id) keeps this
// idempotent; the no-op DO UPDATE makes RETURNING yield the existing row.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	patientID int64,
	adminID int64,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (patient_id, admin_id)
		VALUES ($1, $2)
		ON CONFLICT (patient_id, admin_id) WHERE status = 'active'
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING ` + conversationColumns
	return r.scanConversation(r.db.QueryRow(ctx, query, patientID, adminID))
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return r.scanConversation(r.db.QueryRow(ctx, query, conversationID))
}

// GetForParty fetches a conversation only if the given party belongs to it.
// Patient and admin ids live in separate tables, so the role picks the column.
func (r *ConversationRepository) GetForParty(
	ctx context.Context,
	conversationID int64,
	partyID int64,
	role string,
) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 AND admin_id = $2`
	if role == models.RolePatient {
		query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 AND patient_id = $2`
	}
	return r.scanConversation(r.db.QueryRow(ctx, query, conversationID, partyID))
}

// ListForParty returns one page of the party's conversations, most recent
// message first, with the party's unread counter and the last message attached.
func (r *ConversationRepository) ListForParty(
	ctx context.Context,
	partyID int64,
	role string,
	limit int,
	offset int,
) ([]models.ConversationSummary, int, error) {
	partyColumn := "admin_id"
	unreadColumn := "admin_unread_count"
	if role == models.RolePatient {
		partyColumn = "patient_id"
		unreadColumn = "patient_unread_count"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM conversations WHERE ` + partyColumn + ` = $1`
	if err := r.db.QueryRow(ctx, countQuery, partyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT
			c.id,
			c.patient_id,
			c.admin_id,
			c.status,
			c.patient_unread_count,
			c.admin_unread_count,
			c.last_message_at,
			c.created_at,
			c.updated_at,
			c.` + unreadColumn + `,
			lm.id,
			lm.conversation_id,
			lm.sender_id,
			lm.sender_role,
			lm.recipient_id,
			lm.content,
			lm.message_type,
			lm.priority,
			lm.read_status,
			lm.created_at
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, sender_id, sender_role, recipient_id,
			       content, message_type, priority, read_status, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		WHERE c.` + partyColumn + ` = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, partyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var messageConversationID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageSenderRole sql.NullString
		var messageRecipientID sql.NullInt64
		var messageContent sql.NullString
		var messageType sql.NullString
		var messagePriority sql.NullString
		var messageRead sql.NullBool
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.PatientID,
			&summary.AdminID,
			&summary.Status,
			&summary.PatientUnreadCount,
			&summary.AdminUnreadCount,
			&summary.LastMessageAt,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.UnreadCount,
			&messageID,
			&messageConversationID,
			&messageSenderID,
			&messageSenderRole,
			&messageRecipientID,
			&messageContent,
			&messageType,
			&messagePriority,
			&messageRead,
			&messageCreatedAt,
		); err != nil {
			return nil, 0, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.Message{
				ID:             messageID.Int64,
				ConversationID: messageConversationID.Int64,
				SenderID:       messageSenderID.Int64,
				SenderRole:     messageSenderRole.String,
				RecipientID:    messageRecipientID.Int64,
				Content:        messageContent.String,
				MessageType:    messageType.String,
				Priority:       messagePriority.String,
				ReadStatus:     messageRead.Bool,
				CreatedAt:      messageCreatedAt.Time,
			}
		}

		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

// RecordMessage bumps the thread after an insert: last_message_at takes the new
// row's timestamp and the recipient side's unread counter goes up by one.
func (r *ConversationRepository) RecordMessage(
	ctx context.Context,
	conversationID int64,
	sentAt time.Time,
	recipientRole string,
) error {
	unreadColumn := "admin_unread_count"
	if recipientRole == models.RolePatient {
		unreadColumn = "patient_unread_count"
	}
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_message_at = $2,
		    `+unreadColumn+` = `+unreadColumn+` + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, conversationID, sentAt)
	return err
}

func (r *ConversationRepository) ResetUnread(ctx context.Context, conversationID int64, readerRole string) error {
	unreadColumn := "admin_unread_count"
	if readerRole == models.RolePatient {
		unreadColumn = "patient_unread_count"
	}
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET `+unreadColumn+` = 0, updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	return err
}

func (r *ConversationRepository) Archive(ctx context.Context, conversationID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET status = 'archived', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, conversationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ConversationRepository) scanConversation(row interface{ Scan(dest ...any) error }) (*models.Conversation, error) {
	var conversation models.Conversation
	err := row.Scan(
		&conversation.ID,
		&conversation.PatientID,
		&conversation.AdminID,
		&conversation.Status,
		&conversation.PatientUnreadCount,
		&conversation.AdminUnreadCount,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}
