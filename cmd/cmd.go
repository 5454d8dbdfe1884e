package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swipe-match-backend/internal/config"
	"swipe-match-backend/internal/handlers"
	"swipe-match-backend/internal/identity"
	"swipe-match-backend/internal/repository"
	"swipe-match-backend/internal/services"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	path := os.Getenv("SWIPE_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	// Open store
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open store")
	}
	defer store.Close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("Store ready")

	// Push notifications
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.APNs.KeyFile != "" {
		apns, err := services.NewAPNsNotifier(cfg.APNs.KeyFile, cfg.APNs.KeyID, cfg.APNs.TeamID, cfg.APNs.Topic, cfg.APNs.Production)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs notifier")
		}
		notifier = apns
	} else {
		log.Warn().Msg("APNs key not configured, push notifications disabled")
	}

	// Initialize services
	hub := services.NewHub()
	directory := services.NewDirectory(store.Users())
	verifier := identity.NewTokenInfoVerifier(
		cfg.Identity.TokenInfoURL,
		cfg.Identity.ClientID,
		cfg.Identity.RetryMax,
		cfg.Identity.Timeout,
	)
	userService := services.NewUserService(store.Users(), directory, verifier, cfg.JWT.Secret, cfg.Admin.Password)
	pairingService := services.NewPairingService(store.Partners(), store.Users(), directory, hub, notifier)
	cardService := services.NewCardService(store, cfg.Cache.CardTTL)
	matchService := services.NewMatchService(store.Users(), store.Partners(), pairingService, cardService, hub, notifier)

	s3Client, err := services.NewS3Client(
		ctx,
		cfg.AWS.Region,
		cfg.AWS.AccessKey,
		cfg.AWS.SecretKey,
		cfg.AWS.Endpoint,
		cfg.AWS.UsePathStyle,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 client")
	}
	imageService := services.NewImageService(s3Client, s3.NewPresignClient(s3Client), cfg.AWS.S3Bucket, cfg.AWS.ImageBaseURL())

	// Setup router
	router := &handlers.Router{
		Users:     handlers.NewUserHandler(userService),
		Partners:  handlers.NewPartnerHandler(pairingService, matchService),
		Cards:     handlers.NewCardHandler(cardService, matchService),
		Images:    handlers.NewImageHandler(imageService),
		WebSocket: handlers.NewWebSocketHandler(hub, hub, userService, pairingService, matchService),
		Validator: userService,
		Store:     store,
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown; they end with the process
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStore returns the store selected by database.driver
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return repository.NewMemory(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := repository.Connect(connectCtx, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Database connection established")
	return db, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
