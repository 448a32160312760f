package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"pawmarket-backend/config"
	"pawmarket-backend/internal/delivery/http/middleware"
	v1 "pawmarket-backend/internal/delivery/http/v1"
	"pawmarket-backend/internal/domain"
	"pawmarket-backend/internal/infrastructure/cache"
	"pawmarket-backend/internal/infrastructure/gemini"
	"pawmarket-backend/internal/infrastructure/imagefetch"
	"pawmarket-backend/internal/repository/postgres"
	"pawmarket-backend/internal/source"
	"pawmarket-backend/internal/usecase"
	"pawmarket-backend/pkg/logger"
	"pawmarket-backend/pkg/storage"
	"pawmarket-backend/pkg/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	pgxPool, err := postgres.NewPgxPool(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Successfully connected to PostgreSQL")

	// Repositories
	userRepo := postgres.NewUserRepo(pgxPool)
	importRepo := postgres.NewImportRepo(pgxPool)

	// In-memory cache, mainly supplier memoization during imports
	memCache := cache.NewMemoryCache(30*time.Minute, 60*time.Minute)

	mux := http.NewServeMux()

	// Auth Module
	authUC := usecase.NewAuthUsecase(userRepo, cfg.AccessTokenExpiry)
	authHandler := v1.NewAuthHandler(authUC)

	// Storage Module (R2)
	r2Storage, err := storage.NewR2Storage(
		context.Background(),
		cfg.R2AccountID,
		cfg.R2AccessKeyID,
		cfg.R2AccessKeySecret,
		cfg.R2BucketName,
		cfg.R2PublicURL,
		cfg.R2UploadTimeout,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize R2 Storage")
	}
	uploadHandler := v1.NewUploadHandler(r2Storage, cfg.MaxUploadSizeMB)

	// Import Module
	generator := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout)
	classifier := usecase.NewClassifier(generator)
	fetcher := imagefetch.New(cfg.ImageFetchTimeout)
	replicator := usecase.NewReplicator(fetcher, r2Storage, cfg.ImageUploadMode)
	importUC := usecase.NewImportUsecase(importRepo, classifier, replicator, memCache, cfg.SupplierEmailDomain)

	sourceFactory := func(name, supplierOverride string) (domain.Source, error) {
		fallback := supplierOverride
		if fallback == "" {
			fallback = cfg.DefaultSupplierID
		}
		switch name {
		case "sheet":
			return source.NewSheetSource(r2Storage, cfg.ImportCSVObject, cfg.ImportBatchSize, fallback), nil
		case "records":
			if cfg.RecordsAPIURL == "" {
				return nil, fmt.Errorf("records source is not configured")
			}
			return source.NewRecordsSource(cfg.RecordsAPIURL, cfg.RecordsAPIToken, cfg.RecordsTimeout, cfg.ImportBatchSize, fallback), nil
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	importHandler := v1.NewImportHandler(importUC, sourceFactory)

	adminOnly := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}

	// Auth
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("GET /api/v1/auth/me", middleware.AuthMiddleware(http.HandlerFunc(authHandler.Me)))

	// Import (Admin)
	mux.Handle("GET /api/v1/import/batch", adminOnly(importHandler.RunBatch))

	// Uploads (Admin)
	mux.Handle("POST /api/v1/upload", adminOnly(uploadHandler.UploadFile))

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok", "db": "connected"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler) // Support root health check for Load Balancers

	addr := fmt.Sprintf(":%s", cfg.Port)

	// 50 req/s, burst 100, cleanup every minute, TTL 3 minutes
	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		50,
		100,
		time.Minute,
		3*time.Minute,
	)

	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	log.Info().Msgf("Server starting on %s", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
