package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/cache"
	job "github.com/maheshrc27/contentflow/internal/jobs"
	"github.com/maheshrc27/contentflow/internal/logging"
	"github.com/maheshrc27/contentflow/internal/repository"
	"github.com/maheshrc27/contentflow/internal/service"
)

// mediacleanup runs the orphaned media sweep once, for use from an external
// scheduler.
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

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var c cache.Cache = cache.Noop{}
	if cfg.RedisURI != "" {
		c = cache.NewRedisCache(cfg.RedisURI, "", 0)
	}
	defer c.Close()

	mediaSvc := service.NewMediaService(repository.NewMediaAssetRepository(db), c, cfg.MediaDir)
	job.NewMediaCleanupJob(mediaSvc, 10*time.Minute).Run()
}
