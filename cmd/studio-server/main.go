package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	red "github.com/redis/go-redis/v9"

	"studio-backend/internal/audit"
	"studio-backend/internal/config"
	"studio-backend/internal/handler"
	"studio-backend/internal/messaging"
	"studio-backend/internal/middleware"
	"studio-backend/internal/observability"
	"studio-backend/internal/repository/postgres"
	redisrepo "studio-backend/internal/repository/redis"
	s3repo "studio-backend/internal/repository/s3"
	"studio-backend/internal/security"
	"studio-backend/internal/service"
	"studio-backend/internal/websocket"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting studio server",
		slog.String("environment", cfg.Environment),
		slog.String("audit_backend", cfg.AuditBackend))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := openAuditBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open audit backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backend.close()

	binding, err := security.ParseBindingPolicy(cfg.SessionBinding)
	if err != nil {
		slog.Error("invalid session binding", slog.String("error", err.Error()))
		os.Exit(1)
	}

	limiter := security.NewRateLimiter(ctx, security.RateLimiterConfig{})
	defer limiter.Stop()

	sessions := security.NewSessionStore(ctx, security.SessionStoreConfig{
		Validity:    cfg.SessionValidity,
		IdleTimeout: cfg.SessionIdleTime,
		Binding:     binding,
	})
	defer sessions.Stop()

	csrfStore := security.NewCSRFStore(ctx, security.CSRFStoreConfig{Validity: cfg.CSRFValidity})
	defer csrfStore.Stop()

	if err := observability.RegisterActiveSessions(prometheus.DefaultRegisterer, sessions.Count); err != nil {
		slog.Warn("failed to register session gauge", slog.String("error", err.Error()))
	}

	auditLog := audit.New(backend.store, audit.Config{MaxEntries: cfg.AuditMaxEntries})

	hub := websocket.NewHub()
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("hub error", slog.String("error", err.Error()))
		}
	}()
	auditLog.AddSink(hub)
	slog.Info("audit feed hub started")

	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rmqCtx, rmqCancel := context.WithTimeout(ctx, 60*time.Second)
		rmq, err = messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL, 30, 2*time.Second)
		rmqCancel()
		if err != nil {
			slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rmq.Close()
		auditLog.AddSink(rmq)
		slog.Info("audit event bus connected")
	}

	credentials := security.NewCredentialVerifier(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash)
	authService := service.NewAuthService(limiter, sessions, csrfStore, credentials, auditLog)

	origins := middleware.ParseOrigins(cfg.AllowedOrigins)
	throttle := middleware.NewThrottle(ctx, cfg.ThrottleRPS, cfg.ThrottleBurst)
	defer throttle.Stop()

	validatorCfg := middleware.DefaultOpenAPIValidatorConfig(cfg.Environment)
	validatorCfg.SpecPath = cfg.OpenAPISpecPath

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(origins))
	r.Use(middleware.Metrics())
	r.Use(throttle.Middleware())
	r.Use(middleware.OpenAPIValidator(validatorCfg))

	checks := backend.checks
	checks["event_bus"] = handler.RabbitMQCheck(rmq)

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(checks))
	r.Handle("/metrics", promhttp.Handler())

	handler.RegisterAdminRoutes(r, handler.AdminRoutes{
		AuthService: authService,
		Auth:        handler.NewAuthHandler(authService, sessions.Validity(), csrfStore.Validity()),
		Audit:       handler.NewAuditHandler(auditLog),
		Feed:        handler.NewWebSocketHandler(hub, origins),
		CSRFTTL:     csrfStore.Validity(),
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("studio server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	slog.Info("server stopped gracefully")
}

// auditBackend is the selected audit document store plus its readiness checks.
type auditBackend struct {
	store   audit.Store
	checks  map[string]handler.Check
	closers []func() error
}

func (b *auditBackend) close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			slog.Warn("failed to close audit backend", slog.String("error", err.Error()))
		}
	}
}

func openAuditBackend(ctx context.Context, cfg *config.Config) (*auditBackend, error) {
	backend := &auditBackend{checks: map[string]handler.Check{}}

	switch cfg.AuditBackend {
	case config.AuditBackendMemory:
		backend.store = audit.NewMemoryStore()
		backend.checks["audit_store"] = handler.StaticCheck("up", map[string]interface{}{"backend": "memory"})

	case config.AuditBackendFile:
		backend.store = audit.NewFileStore(cfg.AuditFilePath)
		backend.checks["audit_store"] = handler.StaticCheck("up", map[string]interface{}{
			"backend": "file",
			"path":    cfg.AuditFilePath,
		})

	case config.AuditBackendS3:
		client := s3repo.NewClient(s3repo.ClientConfig{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		store := s3repo.NewAuditStore(client, cfg.S3Bucket, cfg.S3Prefix)
		backend.store = store
		backend.checks["audit_store"] = handler.StaticCheck("up", map[string]interface{}{
			"backend": "s3",
			"bucket":  cfg.S3Bucket,
			"key":     store.Key(),
		})

	case config.AuditBackendRedis:
		connCtx, connCancel := context.WithTimeout(ctx, 10*time.Second)
		defer connCancel()

		client, err := redisrepo.NewClient(connCtx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		store := redisrepo.NewAuditStore(client, cfg.AuditDocument)
		backend.store = store
		backend.checks["audit_store"] = handler.PingCheck(store)
		backend.closers = append(backend.closers, closeRedis(client))
		slog.Info("connected to redis")

	case config.AuditBackendPostgres:
		connCtx, connCancel := context.WithTimeout(ctx, 10*time.Second)
		defer connCancel()

		db, err := config.NewPostgresConnection(connCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := postgres.NewAuditStore(db, cfg.AuditDocument)
		if err != nil {
			db.Close()
			return nil, err
		}
		backend.store = store
		backend.checks["database"] = handler.DatabaseCheck(db)
		backend.closers = append(backend.closers, closeDB(db))
		slog.Info("connected to postgresql")

	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.AuditBackend)
	}

	return backend, nil
}

func closeRedis(client *red.Client) func() error {
	return client.Close
}

func closeDB(db *sql.DB) func() error {
	return db.Close
}
