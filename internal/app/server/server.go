package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/domain/reports"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/db"
	"appraisal/internal/platform/email"
	"appraisal/internal/platform/jobs"
	"appraisal/internal/platform/metrics"
	"appraisal/internal/transport/http/api"
	adminhandler "appraisal/internal/transport/http/handlers/admin"
	appraisalhandler "appraisal/internal/transport/http/handlers/appraisal"
	audithandler "appraisal/internal/transport/http/handlers/audit"
	authhandler "appraisal/internal/transport/http/handlers/auth"
	notificationshandler "appraisal/internal/transport/http/handlers/notifications"
	reportshandler "appraisal/internal/transport/http/handlers/reports"
	"appraisal/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	cancel context.CancelFunc
}

// New builds the full application: database, domain services, background
// jobs, and the HTTP router. Background workers run until Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, findMigrationsDir()); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	authStore := auth.NewStore(pool)
	authSvc := auth.NewService(authStore)
	auditSvc := audit.New(pool)

	notifSvc := notifications.New(notifications.NewStore(pool), email.New(cfg))
	notifSvc.DefaultFrom = cfg.EmailFrom

	engine := appraisal.NewService(appraisal.NewStore(pool), notifSvc)
	reportsSvc := reports.NewService(reports.NewStore(pool))
	idemStore := middleware.NewIdempotencyStore(pool)

	jobsSvc := jobs.New(pool, cfg, engine)
	jobsCtx, cancel := context.WithCancel(context.Background())
	jobsSvc.Start(jobsCtx)

	collector := metrics.New()
	isProd := cfg.Environment == "production"

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(isProd))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}
	router.Use(middleware.Auth(cfg.JWTSecret, authStore))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequirePermission(auth.PermSystemAdmin, authStore)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authSvc, cfg.JWTSecret)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/auth/refresh", authHandler.HandleRefresh)

		appraisalhandler.NewHandler(engine, authStore, auditSvc, authSvc, idemStore).RegisterRoutes(r)
		reportshandler.NewHandler(reportsSvc, authStore).RegisterRoutes(r)
		notificationshandler.NewHandler(notifSvc, authSvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, authStore).RegisterRoutes(r)
		adminhandler.NewHandler(jobsSvc, authStore).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Jobs:    jobsSvc,
		Metrics: collector,
		cancel:  cancel,
	}, nil
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func Run() {
	cfg := config.Load()

	app, err := New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown failed", "err", err)
	}
}

// findMigrationsDir walks up from the working directory so integration tests
// run from package directories still find the repository's migrations.
func findMigrationsDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "migrations"
	}
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "migrations"
		}
		dir = parent
	}
}
