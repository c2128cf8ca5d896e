package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestMessagingServiceConversationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMessagingService(pool)

	adminID := createTestAdmin(t, ctx, pool)
	patientID := createTestPatient(t, ctx, pool)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, adminID, patientID) })

	first, err := service.CreateConversation(ctx, patientID, models.RolePatient, adminID)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	second, err := service.CreateConversation(ctx, adminID, models.RoleAdmin, patientID)
	if err != nil {
		t.Fatalf("CreateConversation (repeat): %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same active conversation, got %d and %d", first.ID, second.ID)
	}

	if err := service.ArchiveConversation(ctx, adminID, models.RoleAdmin, first.ID); err != nil {
		t.Fatalf("ArchiveConversation: %v", err)
	}
	third, err := service.CreateConversation(ctx, patientID, models.RolePatient, adminID)
	if err != nil {
		t.Fatalf("CreateConversation after archive: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("expected a fresh conversation after archiving, got %d again", first.ID)
	}
}

func TestMessagingServiceSendUpdatesThreadAtomically(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMessagingService(pool)

	adminID := createTestAdmin(t, ctx, pool)
	patientID := createTestPatient(t, ctx, pool)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, adminID, patientID) })

	conversation, err := service.CreateConversation(ctx, adminID, models.RoleAdmin, patientID)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	delivery, err := service.SendMessage(ctx, adminID, models.RoleAdmin, SendMessageInput{
		ConversationID: conversation.ID,
		Content:        "How are you feeling this week?",
		MessageType:    models.MessageTypeAdminResponse,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if delivery.RecipientID != patientID || delivery.RecipientRole != models.RolePatient {
		t.Fatalf("unexpected recipient: %+v", delivery)
	}

	stored, err := repository.NewConversationRepository(pool).GetByID(ctx, conversation.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.LastMessageAt == nil || !stored.LastMessageAt.Equal(delivery.Message.CreatedAt) {
		t.Fatalf("last_message_at = %v, want %v", stored.LastMessageAt, delivery.Message.CreatedAt)
	}
	if stored.PatientUnreadCount != 1 || stored.AdminUnreadCount != 0 {
		t.Fatalf("unread counters = (patient %d, admin %d), want (1, 0)",
			stored.PatientUnreadCount, stored.AdminUnreadCount)
	}

	messages, total, err := service.ListMessages(ctx, patientID, models.RolePatient, conversation.ID, 1, 20)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if total != 1 || len(messages) != 1 {
		t.Fatalf("expected 1 message, got total=%d len=%d", total, len(messages))
	}
	if messages[0].ReadStatus {
		t.Fatalf("expected unread message, got %+v", messages[0])
	}
}

func TestMessagingServiceMarkAsReadResetsCounter(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationMessagingService(pool)

	adminID := createTestAdmin(t, ctx, pool)
	patientID := createTestPatient(t, ctx, pool)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, adminID, patientID) })

	conversation, err := service.CreateConversation(ctx, patientID, models.RolePatient, adminID)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := service.SendMessage(ctx, patientID, models.RolePatient, SendMessageInput{
			ConversationID: conversation.ID,
			Content:        fmt.Sprintf("update %d", i+1),
		}); err != nil {
			t.Fatalf("SendMessage %d: %v", i+1, err)
		}
	}

	conversationRepo := repository.NewConversationRepository(pool)
	stored, err := conversationRepo.GetByID(ctx, conversation.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.AdminUnreadCount != 3 {
		t.Fatalf("admin unread = %d, want 3", stored.AdminUnreadCount)
	}

	if err := service.MarkAsRead(ctx, adminID, models.RoleAdmin, conversation.ID); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	stored, err = conversationRepo.GetByID(ctx, conversation.ID)
	if err != nil {
		t.Fatalf("GetByID after read: %v", err)
	}
	if stored.AdminUnreadCount != 0 {
		t.Fatalf("admin unread after read = %d, want 0", stored.AdminUnreadCount)
	}

	messages, _, err := service.ListMessages(ctx, adminID, models.RoleAdmin, conversation.ID, 1, 20)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	for _, message := range messages {
		if !message.ReadStatus {
			t.Fatalf("message %d still unread after MarkAsRead", message.ID)
		}
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationMessagingService(pool *pgxpool.Pool) *MessagingService {
	return NewMessagingService(
		pool,
		repository.NewConversationRepository(pool),
		repository.NewMessageRepository(pool),
		repository.NewPatientRepository(pool),
		repository.NewAdminUserRepository(pool),
	)
}

func createTestAdmin(t *testing.T, ctx context.Context, pool *pgxpool.Pool) int64 {
	t.Helper()

	admin := &models.AdminUser{
		Email:        fmt.Sprintf("chat-test-admin-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Name:         "Test Admin",
	}
	if err := repository.NewAdminUserRepository(pool).Create(ctx, admin); err != nil {
		t.Fatalf("Create admin: %v", err)
	}
	return admin.ID
}

func createTestPatient(t *testing.T, ctx context.Context, pool *pgxpool.Pool) int64 {
	t.Helper()

	patient, err := repository.NewPatientRepository(pool).Create(ctx, repository.CreatePatientInput{
		Email:          fmt.Sprintf("chat-test-patient-%d@example.com", time.Now().UnixNano()),
		PasswordHash:   "test-hash",
		Name:           "Test Patient",
		StartingWeight: 200,
		GoalWeight:     170,
	})
	if err != nil {
		t.Fatalf("Create patient: %v", err)
	}
	return patient.ID
}

func cleanupTestData(t *testing.T, ctx context.Context, pool *pgxpool.Pool, adminID, patientID int64) {
	t.Helper()

	statements := []struct {
		query string
		arg   int64
	}{
		{`DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE patient_id = $1)`, patientID},
		{`DELETE FROM conversations WHERE patient_id = $1`, patientID},
		{`DELETE FROM patient_milestones WHERE patient_id = $1`, patientID},
		{`DELETE FROM progress_entries WHERE patient_id = $1`, patientID},
		{`DELETE FROM patients WHERE id = $1`, patientID},
		{`DELETE FROM admin_users WHERE id = $1`, adminID},
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt.query, stmt.arg); err != nil {
			t.Errorf("cleanup %q: %v", stmt.query, err)
		}
	}
}
