package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swipebite_server/config"
	"swipebite_server/logging"
	"swipebite_server/middleware"
	"swipebite_server/notify"
	"swipebite_server/routes"
	"swipebite_server/services"
	"swipebite_server/socket"
	"swipebite_server/store"
)

// serveCmd starts the HTTP and Socket.IO server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the API server.

Examples:
  # In-memory store, defaults
  SWIPEBITE_AUTH_JWT_SECRET=dev swipebite serve

  # DynamoDB with cross-replica updates over NATS
  swipebite serve --config /etc/swipebite.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}

	bus, err := newBus(cfg, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	gateway := services.NewRetryingGateway(
		store.NewGateway(backend, bus, logger),
		cfg.Session.RetryAttempts, cfg.Session.RetryInterval, logger)

	catalog, err := services.LoadRecipeCatalog()
	if err != nil {
		return err
	}
	logger.Info("Recipe catalog loaded", zap.Int("recipes", catalog.Len()))

	registry := services.NewCoordinatorRegistry(gateway, catalog, services.NewCodeGenerator(),
		services.SessionDefaults{
			MaxParticipants:    cfg.Session.MaxParticipants,
			RequiresAllToMatch: cfg.Session.RequiresAllToMatch,
		}, logger)
	defer registry.Close()

	secret := []byte(cfg.Auth.JWTSecret)
	auth := middleware.Auth(secret, logger)

	r := mux.NewRouter()
	routes.RegisterRoutes(r, "/metrics")
	routes.RegisterRecipeRoutes(r, catalog, logger)
	routes.RegisterSessionRoutes(r, registry, auth,
		middleware.NewRateLimiter(cfg.RateLimit.JoinPerMinute, cfg.RateLimit.JoinBurst, logger), logger)

	if cfg.S3.Bucket != "" {
		presigner, err := services.NewS3Presigner(ctx, cfg.S3)
		if err != nil {
			return err
		}
		routes.RegisterS3Routes(r, services.NewAvatarService(presigner, cfg.S3, logger), auth, logger)
	} else {
		logger.Info("s3.bucket not set, avatar uploads disabled")
	}

	socketServer, hub := socket.NewSocketServer(gateway, secret, logger)
	go func() {
		if err := socketServer.Serve(); err != nil {
			logger.Error("Socket server stopped", zap.Error(err))
		}
	}()
	defer socketServer.Close()
	defer hub.Close()
	r.Handle("/socket.io/", socketServer)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendDynamoDB:
		client, err := store.InitializeDynamoDBClient(ctx, cfg.Dynamo)
		if err != nil {
			return nil, err
		}
		logger.Info("DynamoDB client initialized", zap.String("region", cfg.Dynamo.Region))
		return store.NewDynamoBackend(store.NewDynamoService(client, logger), cfg.Dynamo), nil
	case config.BackendPostgres:
		db, err := store.OpenPostgres(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		logger.Info("Postgres connected")
		return store.NewPostgresBackend(db), nil
	default:
		logger.Warn("Using in-memory store, sessions are lost on restart")
		return store.NewMemoryBackend(), nil
	}
}

func newBus(cfg *config.Config, logger *zap.Logger) (notify.Bus, error) {
	if cfg.NATS.URL == "" {
		return notify.NewLocalBus(), nil
	}
	nc, err := notify.ConnectNATS(cfg.NATS, logger)
	if err != nil {
		return nil, err
	}
	return notify.NewNATSBus(nc, logger), nil
}
