package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/cache"
	job "github.com/maheshrc27/contentflow/internal/jobs"
	"github.com/maheshrc27/contentflow/internal/logging"
	"github.com/maheshrc27/contentflow/internal/metrics"
	"github.com/maheshrc27/contentflow/internal/publisher"
	"github.com/maheshrc27/contentflow/internal/queue"
	"github.com/maheshrc27/contentflow/internal/repository"
	"github.com/maheshrc27/contentflow/internal/scheduler"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/robfig/cron"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cache.Cache = cache.Noop{}
	if cfg.RedisURI != "" {
		c = cache.NewRedisCache(cfg.RedisURI, "", 0)
	}
	defer c.Close()

	postSvc := service.NewPostService(
		repository.NewTransactor(db),
		repository.NewPostRepository(db),
		repository.NewPostMediaRepository(db),
		repository.NewMediaAssetRepository(db),
		c, cfg.CacheTTL, cfg.DispatchLease, nil,
	)
	mediaSvc := service.NewMediaService(repository.NewMediaAssetRepository(db), c, cfg.MediaDir)
	historySvc := service.NewHistoryService(repository.NewPostingHistoryRepository(db))

	var host publisher.MediaHost
	r2, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		slog.Warn("public media host unavailable", "error", err)
	} else {
		host = r2
	}

	registry := publisher.FromConfig(ctx, *cfg, host)
	sched := scheduler.New(postSvc, registry, cfg.SchedulerInterval).WithHistory(historySvc)

	// cron jobs
	cleanup := job.NewMediaCleanupJob(mediaSvc, 0)
	cr := cron.New()
	if err := cleanup.Schedule(cr, cfg.MediaCleanupSchedule); err != nil {
		log.Fatalf("Invalid media cleanup schedule %q: %v", cfg.MediaCleanupSchedule, err)
	}
	cr.Start()
	defer cr.Stop()

	//queue
	var srv *asynq.Server
	if cfg.RedisURI != "" {
		srv = asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisURI}, asynq.Config{
			Concurrency: 1,
		})

		go func() {
			slog.Info("starting the asynq server")
			if err := srv.Run(queue.NewQueue(sched).Mux()); err != nil {
				slog.Error("asynq server stopped", "error", err)
			}
		}()
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	sched.Run(ctx)

	slog.Info("shutting down scheduler")
	if srv != nil {
		srv.Shutdown()
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down metrics server", "error", err)
		}
	}
	slog.Info("scheduler shutdown complete")
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}
