package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/helio-trials/PatientEngageBack/internal/config"
	"github.com/helio-trials/PatientEngageBack/internal/handlers"
	"github.com/helio-trials/PatientEngageBack/internal/middleware"
	"github.com/helio-trials/PatientEngageBack/internal/repository"
	"github.com/helio-trials/PatientEngageBack/internal/services"
	chatws "github.com/helio-trials/PatientEngageBack/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	adminRepo := repository.NewAdminUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	var storage services.AttachmentStorage
	if cfg.StorageConfigured() {
		storage = services.NewSupabaseAttachmentStorage(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	chatHub := chatws.NewHub()
	go chatHub.Run()

	messagingService := services.NewMessagingService(db, conversationRepo, messageRepo, patientRepo, adminRepo)
	templateService := services.NewTemplateService(templateRepo)
	milestoneService := services.NewMilestoneService(milestoneRepo, progressRepo, patientRepo)

	authHandler := handlers.NewAuthHandler(adminRepo, patientRepo, cfg.JWTSecret)
	chatHandler := handlers.NewChatHandler(messagingService, chatHub, cfg.JWTSecret)
	templateHandler := handlers.NewTemplateHandler(templateService)
	progressHandler := handlers.NewProgressHandler(milestoneService)
	patientHandler := handlers.NewPatientHandler(patientRepo)
	attachmentHandler := handlers.NewAttachmentHandler(storage)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	registerDocs(api, cfg)

	protected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	conversations := protected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.CreateConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)
	conversations.Post("/:id/read", chatHandler.MarkRead)
	conversations.Post("/:id/archive", chatHandler.ArchiveConversation)

	templates := protected.Group("/templates")
	templates.Get("", templateHandler.ListTemplates)
	templates.Post("", templateHandler.CreateTemplate)
	templates.Put("/:id", templateHandler.UpdateTemplate)
	templates.Post("/:id/use", templateHandler.RecordUsage)
	templates.Delete("/:id", templateHandler.DeleteTemplate)

	protected.Post("/progress", progressHandler.LogProgress)
	protected.Get("/progress", progressHandler.ListProgress)
	protected.Get("/milestones", progressHandler.ListMilestones)

	patients := protected.Group("/patients")
	patients.Get("", patientHandler.ListPatients)
	patients.Post("", patientHandler.EnrollPatient)
	patients.Get("/:id/context", patientHandler.GetPatientContext)

	protected.Post("/attachments", attachmentHandler.Upload)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
