package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harbor-house/apiserver/config"
	"github.com/harbor-house/apiserver/internal/db"
	"github.com/harbor-house/apiserver/internal/handlers"
	"github.com/harbor-house/apiserver/internal/identity"
	"github.com/harbor-house/apiserver/internal/mq"
	"github.com/harbor-house/apiserver/internal/services"
	"github.com/harbor-house/apiserver/internal/storage"
	"github.com/harbor-house/apiserver/internal/store"
	"github.com/rs/zerolog/log"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.Events
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Identity.SessionJWTSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("IDENTITY_SESSION_JWT_SECRET is required")
	}

	provider := newSessionProvider(cfg.Identity)

	archive, err := newArchive(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	events, err := newEvents(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	residentRepo := store.NewResidentRepository(dbConn)
	agreementRepo := store.NewAgreementRepository(dbConn)

	registrationService := services.NewRegistrationService(residentRepo, agreementRepo, provider, events, archive)
	rosterService := services.NewRosterService(residentRepo, agreementRepo)

	authMiddleware := handlers.RequireSession(cfg.Identity.SessionJWTSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/onboarding", func(r chi.Router) {
		handlers.OnboardingRouter(r, registrationService, provider, authMiddleware)
	})
	router.Route("/residents", func(r chi.Router) {
		handlers.ResidentsRouter(r, rosterService, authMiddleware)
	})
	router.Route("/session", func(r chi.Router) {
		handlers.SessionRouter(r, provider, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
	}, nil
}

// newSessionProvider selects the identity gateway when one is
// configured, otherwise an in-memory provider for local development.
func newSessionProvider(cfg config.IdentityConfig) identity.SessionProvider {
	if cfg.BaseURL == "" {
		log.Warn().Str("component", "server").Msg("no identity gateway configured, using in-memory sessions")
		return identity.NewMemoryProvider()
	}
	return identity.NewGatewayClient(cfg)
}

// newArchive builds the intake packet archive for the configured object
// storage backend. An empty backend disables archiving.
func newArchive(ctx context.Context, cfg config.StorageConfig) (*storage.Archive, error) {
	var backend storage.ObjectStorage
	switch cfg.Backend {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = client
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	archive := storage.NewArchive(backend)
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

// newEvents builds the registration event publisher for the configured
// broker. An empty backend disables publishing.
func newEvents(ctx context.Context, cfg config.MQConfig) (*mq.Events, error) {
	switch cfg.Backend {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return mq.NewEvents(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return mq.NewEvents(client), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
