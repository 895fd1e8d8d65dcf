package main

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"clubevents/config"
	authadapter "clubevents/internal/adapters/auth"
	emailadapter "clubevents/internal/adapters/email"
	httpdelivery "clubevents/internal/delivery/http"
	"clubevents/internal/delivery/http/controllers"
	"clubevents/internal/delivery/http/middleware"
	"clubevents/internal/repository/postgres"
	"clubevents/internal/services"
)

const (
	bcryptCost           = 10
	registrationValidity = 24 * time.Hour
)

// @title Club Events API
// @version 1.0
// @description Group and event management with email invitations and token-based replies.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	userRepo := postgres.NewUserRepository(db)
	groupRepo := postgres.NewGroupRepository(db)
	memberRepo := postgres.NewGroupMemberRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)

	mailer, err := emailadapter.NewMailer(emailadapter.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: emailadapter.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
		},
	})
	if err != nil {
		log.Fatalf("failed to create mailer: %v", err)
	}

	hasher := authadapter.NewBcryptHasher(bcryptCost)
	sessions := authadapter.NewJWTSessions(cfg.JWTSecret)
	regCodec := authadapter.NewRegistrationCodec(cfg.JWTSecret, registrationValidity)

	emailService := services.NewEmailService(mailer, emailadapter.NewTemplateRenderer())
	authService := services.NewAuthService(userRepo, hasher, sessions, regCodec, emailService, cfg.BaseURL, cfg.SessionValidity)
	userService := services.NewUserService(userRepo)
	groupService := services.NewGroupService(groupRepo, memberRepo)
	eventService := services.NewEventService(eventRepo)
	invitationService := services.NewInvitationService(invitationRepo, eventRepo, userRepo, emailService, cfg.BaseURL)

	mux := httpdelivery.NewRouter(
		logger,
		sessions,
		controllers.NewAuthController(logger, authService),
		controllers.NewUserController(logger, userService, authService),
		controllers.NewGroupController(logger, groupService),
		controllers.NewEventController(logger, eventService),
		controllers.NewInvitationController(logger, invitationService),
	)

	handler := middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	addr := ":" + cfg.Port
	logger.Info("server starting", "addr", addr, "env", cfg.Environment)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
