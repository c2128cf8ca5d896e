package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrPersistence marks downstream database failures; callers may retry.
	ErrPersistence = errors.New("persistence failure")
)

// asPersistence tags a database error so handlers can surface it as retryable
// instead of masking it behind fallback data.
func asPersistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

type patientReader interface {
	GetByID(ctx context.Context, id int64) (*models.Patient, error)
}

type adminReader interface {
	GetByID(ctx context.Context, id int64) (*models.AdminUser, error)
}

// MessagingService is the single entry point the UI layer uses for
// conversation state: get-or-create, send, list, read acknowledgment.
type MessagingService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	patientRepo      patientReader
	adminRepo        adminReader
}

// MessageDelivery is what a successful send hands to the push layer.
type MessageDelivery struct {
	Conversation  *models.Conversation
	Message       *models.Message
	RecipientID   int64
	RecipientRole string
}

type SendMessageInput struct {
	ConversationID int64
	Content        string
	MessageType    string
	Priority       string
	Attachments    []string
}

func NewMessagingService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	patientRepo patientReader,
	adminRepo adminReader,
) *MessagingService {
	return &MessagingService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		patientRepo:      patientRepo,
		adminRepo:        adminRepo,
	}
}

func validParty(role string) bool {
	return role == models.RolePatient || role == models.RoleAdmin
}

// CreateConversation is idempotent get-or-create for the (patient, admin)
// pair; the counterpart must exist.
func (s *MessagingService) CreateConversation(
	ctx context.Context,
	actorID int64,
	role string,
	counterpartID int64,
) (*models.Conversation, error) {
	if !validParty(role) {
		return nil, ErrForbidden
	}
	if actorID <= 0 || counterpartID <= 0 {
		return nil, ErrInvalidInput
	}

	var patientID, adminID int64
	if role == models.RolePatient {
		patientID, adminID = actorID, counterpartID
		if _, err := s.adminRepo.GetByID(ctx, adminID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, asPersistence("load admin", err)
		}
	} else {
		patientID, adminID = counterpartID, actorID
		if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, asPersistence("load patient", err)
		}
	}

	conversation, err := s.conversationRepo.CreateOrGet(ctx, patientID, adminID)
	if err != nil {
		return nil, asPersistence("create conversation", err)
	}
	return conversation, nil
}

// SendMessage inserts the message and updates the parent conversation's
// last_message_at and recipient unread counter in one transaction, so the
// thread never points at a message that is not there.
func (s *MessagingService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	input SendMessageInput,
) (*MessageDelivery, error) {
	if !validParty(role) {
		return nil, ErrForbidden
	}
	if input.ConversationID <= 0 {
		return nil, ErrInvalidInput
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrInvalidInput
	}

	messageType := input.MessageType
	if messageType == "" {
		messageType = models.MessageTypeGeneral
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !models.ValidMessageType(messageType) || !models.ValidPriority(priority) {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetForParty(ctx, input.ConversationID, actorID, role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, asPersistence("load conversation", err)
	}

	recipientID := conversation.PatientID
	recipientRole := models.RolePatient
	if role == models.RolePatient {
		recipientID = conversation.AdminID
		recipientRole = models.RoleAdmin
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, asPersistence("begin send", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, repository.CreateMessageInput{
		ConversationID: conversation.ID,
		SenderID:       actorID,
		SenderRole:     role,
		RecipientID:    recipientID,
		Content:        content,
		MessageType:    messageType,
		Priority:       priority,
		Attachments:    input.Attachments,
	})
	if err != nil {
		return nil, asPersistence("insert message", err)
	}

	if err := txConversationRepo.RecordMessage(ctx, conversation.ID, message.CreatedAt, recipientRole); err != nil {
		return nil, asPersistence("update conversation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, asPersistence("commit send", err)
	}

	conversation.LastMessageAt = &message.CreatedAt
	if recipientRole == models.RolePatient {
		conversation.PatientUnreadCount++
	} else {
		conversation.AdminUnreadCount++
	}

	return &MessageDelivery{
		Conversation:  conversation,
		Message:       message,
		RecipientID:   recipientID,
		RecipientRole: recipientRole,
	}, nil
}

func (s *MessagingService) ListConversations(
	ctx context.Context,
	actorID int64,
	role string,
	page int,
	limit int,
) ([]models.ConversationSummary, int, error) {
	if !validParty(role) {
		return nil, 0, ErrForbidden
	}
	if actorID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	summaries, total, err := s.conversationRepo.ListForParty(ctx, actorID, role, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, asPersistence("list conversations", err)
	}
	return summaries, total, nil
}

func (s *MessagingService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	page int,
	limit int,
) ([]models.Message, int, error) {
	if !validParty(role) {
		return nil, 0, ErrForbidden
	}
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetForParty(ctx, conversationID, actorID, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, asPersistence("load conversation", err)
	}

	messages, total, err := s.messageRepo.ListByConversation(ctx, conversationID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, asPersistence("list messages", err)
	}
	return messages, total, nil
}

// MarkAsRead zeroes the reader side's unread counter and flips read_status on
// every message addressed to the reader, atomically.
func (s *MessagingService) MarkAsRead(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
) error {
	if !validParty(role) {
		return ErrForbidden
	}
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetForParty(ctx, conversationID, actorID, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return asPersistence("load conversation", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return asPersistence("begin mark read", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := repository.NewMessageRepository(tx).MarkConversationRead(ctx, conversationID, role); err != nil {
		return asPersistence("mark messages read", err)
	}
	if err := repository.NewConversationRepository(tx).ResetUnread(ctx, conversationID, role); err != nil {
		return asPersistence("reset unread", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return asPersistence("commit mark read", err)
	}
	return nil
}

// ArchiveConversation closes a thread; admin only. Archiving frees the pair to
// open a fresh active conversation later.
func (s *MessagingService) ArchiveConversation(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
) error {
	if role != models.RoleAdmin {
		return ErrForbidden
	}
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetForParty(ctx, conversationID, actorID, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return asPersistence("load conversation", err)
	}

	archived, err := s.conversationRepo.Archive(ctx, conversationID)
	if err != nil {
		return asPersistence("archive conversation", err)
	}
	if !archived {
		return ErrNotFound
	}
	return nil
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
