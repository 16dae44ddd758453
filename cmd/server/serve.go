package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ayush/research-dashboard/internal/auth"
	"github.com/ayush/research-dashboard/internal/middleware"
	"github.com/ayush/research-dashboard/internal/research"
	"github.com/ayush/research-dashboard/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer pgPool.Close()
	users := store.NewUserStore(pgPool)
	if err := users.Migrate(ctx); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer mongoClient.Disconnect(context.Background())
	history := store.NewHistoryStore(mongoClient.Database(cfg.Mongo.Database))
	if err := history.EnsureIndexes(ctx); err != nil {
		return err
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	// ── MinIO ────────────────────────────────────────────────
	exports, err := store.NewExportStore(ctx, store.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("minio connect: %w", err)
	}

	// ── Gemini ───────────────────────────────────────────────
	agent, err := newAgent(ctx)
	if err != nil {
		return err
	}

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(users, sessions, logger.Named("auth"), auth.OnLogout(agent.Reset))
	researchHandler := research.NewHandler(agent, history, exports, users, logger.Named("research"))
	requireAuth := middleware.RequireAuth(sessions, logger.Named("middleware"))

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	r.Route("/api/research", func(r chi.Router) {
		r.Use(requireAuth)
		researchHandler.Routes(r)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// newAgent wires the Gemini generator, researcher and agent from cfg.
func newAgent(ctx context.Context) (*research.Agent, error) {
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; research requests will fail")
	}
	gen, err := research.NewGenerator(ctx, research.GeneratorConfig{
		APIKey:            cfg.Gemini.APIKey,
		RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
		Burst:             cfg.Gemini.Burst,
	})
	if err != nil {
		return nil, err
	}
	researcher := research.NewResearcher(gen,
		research.WithModel(cfg.Gemini.Model),
		research.WithCallTimeout(cfg.Gemini.CallTimeout),
		research.WithAnalyticsMaxChars(cfg.Agent.AnalyticsMaxChars),
		research.WithLogger(logger.Named("gemini")),
	)
	return research.NewAgent(researcher, cfg.Agent.MaxInFlight, logger.Named("agent"),
		research.WithSessionRetention(cfg.Agent.SessionRetention)), nil
}
