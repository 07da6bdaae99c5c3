package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/CedricAlejo21/securelms-api/internal/config"
	"github.com/CedricAlejo21/securelms-api/internal/database"
	"github.com/CedricAlejo21/securelms-api/internal/handler"
	"github.com/CedricAlejo21/securelms-api/internal/middleware"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
	"github.com/CedricAlejo21/securelms-api/internal/router"
	"github.com/CedricAlejo21/securelms-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.MigrateSecurity(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	identityRepo := repository.NewIdentityRepository(db)
	eventRepo := repository.NewSecurityEventRepository(db)

	auditService := service.NewAuditService(eventRepo, redisClient, cfg.AuditCacheTTL, logger)
	credentialService := service.NewCredentialService(identityRepo, validate, cfg.BcryptCost, cfg.MinPasswordAge, logger)
	lockoutService := service.NewLockoutService(identityRepo, cfg.LockoutThreshold, cfg.LockoutWindow, logger)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authorizationService := service.NewAuthorizationService(auditService, logger)
	authService := service.NewAuthService(identityRepo, credentialService, lockoutService, tokenService, auditService, validate, logger)
	adminUserService := service.NewAdminUserService(identityRepo, auditService, validate, logger)

	authHandler := handler.NewAuthHandler(authService, authorizationService, identityRepo, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)
	adminUserHandler := handler.NewAdminUserHandler(adminUserService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:      authHandler,
		AuditHandler:     auditHandler,
		AdminUserHandler: adminUserHandler,
		Authenticated:    middleware.Authenticated(tokenService, identityRepo, lockoutService, auditService, logger),
		Authorization:    authorizationService,
		LoginRateLimit:   middleware.RateLimit("auth", cfg.LoginRateLimit, cfg.LoginRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
