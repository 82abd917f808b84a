package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/api"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/audit"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/config"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/document"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/llm"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/repository"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/service"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/session"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database (document metadata and chunks)
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	documentRepo := repository.NewDocumentRepository(db)

	// Audit client: best-effort, never blocks chat when absent.
	auditClient := audit.NewClient(audit.Config{
		BaseURL:    cfg.Audit.BaseURL,
		AccessCode: cfg.Audit.AccessCode,
		Timeout:    cfg.Audit.Timeout(),
	})
	if !auditClient.Configured() {
		logger.Warn("audit service not configured, conversations will not be persisted")
	}

	// Response generator: missing settings must not crash startup. The
	// process runs and individual chat requests degrade at first use.
	var generator service.Generator
	provider, err := llm.NewProvider(llm.Config{
		Endpoint:   cfg.LLM.Endpoint,
		APIKey:     cfg.LLM.APIKey,
		Deployment: cfg.LLM.Deployment,
		APIVersion: cfg.LLM.APIVersion,
	}, logger)
	if err != nil {
		logger.Warn("response generator not configured, chat requests will fail at first use", zap.Error(err))
	} else {
		generator = provider
	}

	// History cache store (memory by default, redis for shared deployments)
	historyStore, err := newHistoryStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize history store", zap.Error(err))
	}
	defer historyStore.Close()

	var loader session.HistoryLoader
	if auditClient.Configured() {
		loader = auditClient
	}
	coordinator := session.NewCoordinator(historyStore, loader, cfg.Chat.HistoryLimit, logger)

	// Initialize services
	documentService := service.NewDocumentService(
		documentRepo,
		document.NewValidator(cfg.Storage.AllowedExtensions, cfg.Storage.MaxUploadBytes),
		document.NewExtractorSet(),
		document.NewChunker(cfg.Chat.ChunkSize, cfg.Chat.ChunkOverlap),
		cfg.Storage.Documents,
		cfg.Chat.ContextChunks,
		logger,
	)

	chatService := service.NewChatService(
		coordinator,
		documentService,
		generator,
		auditClient,
		cfg.Chat.SystemPrompt,
		logger,
	)

	// Setup router
	router := api.SetupRouter(chatService, documentService, api.RouterConfig{
		AllowOrigins:        cfg.Server.AllowOrigins,
		AuthRequired:        cfg.Auth.Required,
		GeneratorConfigured: generator != nil,
		AuditConfigured:     auditClient.Configured(),
	})

	// Create HTTP server. No write timeout: streaming responses stay open
	// until generation completes.
	srv := &http.Server{
		Addr:        cfg.Address(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting chat assistant server", zap.String("address", cfg.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newHistoryStore(cfg *config.Config, logger *zap.Logger) (session.HistoryStore, error) {
	switch session.StoreType(cfg.Cache.Driver) {
	case session.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		logger.Info("using redis history cache", zap.String("addr", cfg.Cache.RedisAddr))
		return session.NewStore(session.StoreTypeRedis,
			session.WithRedisClient(client),
			session.WithRedisTTL(time.Duration(cfg.Cache.TTLHours)*time.Hour),
		)
	default:
		return session.NewStore(session.StoreTypeMemory)
	}
}
