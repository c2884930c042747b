package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/api"
	"github.com/maheshrc27/contentflow/internal/cache"
	"github.com/maheshrc27/contentflow/internal/logging"
	"github.com/maheshrc27/contentflow/internal/metrics"
	"github.com/maheshrc27/contentflow/internal/queue"
	"github.com/maheshrc27/contentflow/internal/repository"
	"github.com/maheshrc27/contentflow/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	logFile, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	metrics.Register()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}
	if err := repository.EnsureSchema(db); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	var c cache.Cache = cache.Noop{}
	var trigger service.DispatchTrigger
	if cfg.RedisURI != "" {
		c = cache.NewRedisCache(cfg.RedisURI, "", 0)

		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURI})
		defer client.Close()
		trigger = queue.NewEnqueuer(client)
	}
	defer c.Close()

	tx := repository.NewTransactor(db)
	postRepo := repository.NewPostRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	contactRepo := repository.NewContactRepository(db)
	contactListRepo := repository.NewContactListRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	generator, err := service.NewGeneratorService(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	if err != nil {
		log.Fatalf("Failed to create content generator: %v", err)
	}

	app := api.NewApp(*cfg, api.Services{
		Auth:      service.NewAuthService(*cfg),
		Keys:      service.NewApiKeyService(apiKeyRepo),
		Contacts:  service.NewContactService(tx, contactRepo, contactListRepo, c, cfg.CacheTTL),
		Media:     service.NewMediaService(mediaAssetRepo, c, cfg.MediaDir),
		Posts:     service.NewPostService(tx, postRepo, postMediaRepo, mediaAssetRepo, c, cfg.CacheTTL, cfg.DispatchLease, trigger),
		History:   service.NewHistoryService(historyRepo),
		Generator: generator,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("server is running", "addr", cfg.HTTPAddr)

	gracefulShutdown(app)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("shutting down server")

	if err := app.Shutdown(); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	slog.Info("server shutdown complete")
}
