package repository

import (
	"context"
	"encoding/json"

	"github.com/helio-trials/PatientEngageBack/internal/models"
)

const messageColumns = `
	id, conversation_id, sender_id, sender_role, recipient_id,
	content, message_type, priority, read_status, attachments, created_at
`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

type CreateMessageInput struct {
	ConversationID int64
	SenderID       int64
	SenderRole     string
	RecipientID    int64
	Content        string
	MessageType    string
	Priority       string
	Attachments    []string
}

func (r *MessageRepository) Create(ctx context.Context, input CreateMessageInput) (*models.Message, error) {
	attachments := input.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	// Encoded by hand so pgx does not infer a text[] for the jsonb column.
	encodedAttachments, err := json.Marshal(attachments)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO messages (conversation_id, sender_id, sender_role, recipient_id,
		                      content, message_type, priority, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		RETURNING ` + messageColumns

	var message models.Message
	err = r.db.QueryRow(ctx, query,
		input.ConversationID,
		input.SenderID,
		input.SenderRole,
		input.RecipientID,
		input.Content,
		input.MessageType,
		input.Priority,
		string(encodedAttachments),
	).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.SenderRole,
		&message.RecipientID,
		&message.Content,
		&message.MessageType,
		&message.Priority,
		&message.ReadStatus,
		&message.Attachments,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
) ([]models.Message, int, error) {
	var total int
	totalQuery := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.SenderRole,
			&message.RecipientID,
			&message.Content,
			&message.MessageType,
			&message.Priority,
			&message.ReadStatus,
			&message.Attachments,
			&message.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkConversationRead flips read_status on every unread message addressed to
// the reader's side of the conversation.
func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	conversationID int64,
	readerRole string,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET read_status = TRUE
		WHERE conversation_id = $1
		  AND sender_role <> $2
		  AND read_status = FALSE
	`, conversationID, readerRole)
	return err
}
