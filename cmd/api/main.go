package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/carelink-api/internal/config"
	"github.com/jwalitptl/carelink-api/internal/handler"
	chatHandler "github.com/jwalitptl/carelink-api/internal/handler/chat"
	deviceHandler "github.com/jwalitptl/carelink-api/internal/handler/device"
	documentHandler "github.com/jwalitptl/carelink-api/internal/handler/document"
	"github.com/jwalitptl/carelink-api/internal/handler/health"
	ingestHandler "github.com/jwalitptl/carelink-api/internal/handler/ingest"
	medicationHandler "github.com/jwalitptl/carelink-api/internal/handler/medication"
	motionFileHandler "github.com/jwalitptl/carelink-api/internal/handler/motionfile"
	promHandler "github.com/jwalitptl/carelink-api/internal/handler/prometheus"
	"github.com/jwalitptl/carelink-api/internal/handler/sastoken"
	"github.com/jwalitptl/carelink-api/internal/handler/socket"
	userHandler "github.com/jwalitptl/carelink-api/internal/handler/user"
	"github.com/jwalitptl/carelink-api/internal/middleware"
	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/motion"
	"github.com/jwalitptl/carelink-api/internal/repository/postgres"
	"github.com/jwalitptl/carelink-api/internal/router"
	chatService "github.com/jwalitptl/carelink-api/internal/service/chat"
	deviceService "github.com/jwalitptl/carelink-api/internal/service/device"
	documentService "github.com/jwalitptl/carelink-api/internal/service/document"
	identityService "github.com/jwalitptl/carelink-api/internal/service/identity"
	ingestService "github.com/jwalitptl/carelink-api/internal/service/ingest"
	medicationService "github.com/jwalitptl/carelink-api/internal/service/medication"
	motionFileService "github.com/jwalitptl/carelink-api/internal/service/motionfile"
	userService "github.com/jwalitptl/carelink-api/internal/service/user"
	"github.com/jwalitptl/carelink-api/pkg/auth"
	"github.com/jwalitptl/carelink-api/pkg/converter"
	"github.com/jwalitptl/carelink-api/pkg/identity"
	"github.com/jwalitptl/carelink-api/pkg/logger"
	"github.com/jwalitptl/carelink-api/pkg/messaging/redis"
	"github.com/jwalitptl/carelink-api/pkg/metrics"
	"github.com/jwalitptl/carelink-api/pkg/realtime"
	"github.com/jwalitptl/carelink-api/pkg/storage"
	"github.com/jwalitptl/carelink-api/pkg/validator"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carelink-api",
		Short: "CareLink patient monitoring API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(purgeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), cfg, func(db *sqlx.DB) error {
				if err := postgres.Migrate(cmd.Context(), db); err != nil {
					return err
				}
				log.Info().Msg("Schema is up to date")
				return nil
			})
		},
	}
}

func purgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every row in every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to purge without --yes")
			}
			cfg, err := setup()
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), cfg, func(db *sqlx.DB) error {
				if err := postgres.Purge(cmd.Context(), db); err != nil {
					return err
				}
				log.Warn().Msg("All tables purged")
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "confirm that all data should be deleted")
	return cmd
}

func setup() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

func withDB(ctx context.Context, cfg *config.Config, fn func(*sqlx.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	if err := validator.Register(); err != nil {
		return err
	}

	// Database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	deviceRepo := postgres.NewDeviceRepository(base)
	chatRepo := postgres.NewChatRepository(base)
	medicationRepo := postgres.NewMedicationRepository(base)
	motionFileRepo := postgres.NewMotionFileRepository(base)
	documentRepo := postgres.NewDocumentRepository(base)

	// External collaborators
	store, err := storage.New(ctx, storage.Config{
		Region:           cfg.Storage.Region,
		Endpoint:         cfg.Storage.Endpoint,
		AccessKeyID:      cfg.Storage.AccessKeyID,
		SecretAccessKey:  cfg.Storage.SecretAccessKey,
		Container:        cfg.Storage.Container,
		UploadContainers: cfg.Storage.UploadContainers,
		PresignTTL:       cfg.Storage.PresignTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	conv := converter.NewClient(converter.Config{
		URL:            cfg.Converter.URL,
		Path:           cfg.Converter.Path,
		Timeout:        cfg.Converter.Timeout,
		MaxFailures:    cfg.Converter.MaxFailures,
		BreakerTimeout: cfg.Converter.BreakerTimeout,
	})

	tenant := "https://" + strings.TrimSuffix(cfg.Auth.Domain, "/")
	verifier := auth.NewVerifier(auth.Config{
		Issuer:     tenant + "/",
		Audience:   cfg.Auth.Audience,
		JWKSURL:    tenant + "/.well-known/jwks.json",
		RolesClaim: cfg.Auth.RolesClaim,
		CacheTTL:   cfg.Auth.JWKSCacheTTL,
	})
	idp := identity.NewClient(identity.Config{
		BaseURL:      tenant,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
	})

	// Metrics
	registry := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(registry, cfg.Server.MetricsPrefix)

	// Realtime
	readiness := map[string]health.Pinger{"database": db}
	hub := realtime.NewHub()
	var publisher realtime.Publisher = hub
	if cfg.Redis.URL != "" {
		broker, err := redis.NewRedisBroker(ctx, redis.Config{URL: cfg.Redis.URL}, logger.Component("redis"))
		if err != nil {
			return err
		}
		defer broker.Close()

		relay := realtime.NewRelay(hub, broker, cfg.Redis.Channel)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Realtime relay stopped")
			}
		}()
		publisher = relay
		readiness["redis"] = health.PingFunc(broker.Ping)
	}

	// Services
	userSvc := userService.NewService(userRepo, idp)
	deviceSvc := deviceService.NewService(deviceRepo, userRepo)
	medicationSvc := medicationService.NewService(medicationRepo, userRepo)
	motionFileSvc := motionFileService.NewService(motionFileRepo, userRepo, store)
	documentSvc := documentService.NewService(documentRepo, userRepo)
	chatSvc := chatService.NewService(chatRepo)
	syncSvc := identityService.NewService(userRepo, idp, map[model.Role]string{
		model.RoleAdmin:     cfg.Auth.AdminRoleID,
		model.RolePhysician: cfg.Auth.PhysicianRoleID,
		model.RolePatient:   cfg.Auth.PatientRoleID,
	})
	ingestSvc := ingestService.NewService(ingestService.Dependencies{
		Devices:   deviceRepo,
		Files:     motionFileRepo,
		Chats:     chatRepo,
		Store:     store,
		Converter: conv,
		Extractor: motion.NewExtractor(cfg.Motion.HeaderLine),
		Publisher: publisher,
		Metrics:   appMetrics,
	})

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(verifier)
	r := router.NewRouter(
		authMiddleware,
		router.Handlers{
			Public: []handler.Handler{
				health.NewHandler(readiness),
				promHandler.New(registry),
				socket.NewHandler(socket.Config{AllowedOrigin: cfg.Server.FrontendOrigin},
					verifier, syncSvc, chatSvc, hub, publisher, appMetrics),
			},
			Protected: []handler.Handler{
				userHandler.NewHandler(userSvc, authMiddleware),
				deviceHandler.NewHandler(deviceSvc),
				medicationHandler.NewHandler(medicationSvc, authMiddleware),
				motionFileHandler.NewHandler(motionFileSvc, authMiddleware),
				ingestHandler.NewHandler(ingestSvc),
				documentHandler.NewHandler(documentSvc),
				chatHandler.NewHandler(chatSvc),
				sastoken.NewHandler(store),
			},
		},
		appMetrics,
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.Server.RateLimit),
			RateBurst:      cfg.Server.RateBurst,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     middleware.DefaultCORSConfig(cfg.Server.FrontendOrigin),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exited properly")
	return nil
}
