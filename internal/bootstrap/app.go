package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hilicita-backend/internal/checklists"
	"hilicita-backend/internal/documents"
	"hilicita-backend/internal/embed"
	embedopenai "hilicita-backend/internal/embed/openai"
	"hilicita-backend/internal/ingest"
	"hilicita-backend/internal/llm"
	llmopenai "hilicita-backend/internal/llm/openai"
	"hilicita-backend/internal/parse"
	"hilicita-backend/internal/queue"
	"hilicita-backend/internal/shared/config"
	"hilicita-backend/internal/shared/metrics"
	"hilicita-backend/internal/shared/storage/db"
	"hilicita-backend/internal/shared/storage/object"
	localstore "hilicita-backend/internal/shared/storage/object/local"
	s3store "hilicita-backend/internal/shared/storage/object/s3"
)

// App holds the worker's shared dependencies.
type App struct {
	Config config.Config
	DB     *sql.DB
	Queue  *queue.RedisClient
	Docs   documents.Repo
	Checks checklists.Repo
	Runner *ingest.Runner
	Ops    *gin.Engine
}

// Build prepares shared dependencies for the worker process.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := queue.NewRedisClient(ctx, cfg.RedisURL, cfg.QueueName)
	if err != nil {
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	var docs documents.Repo
	var checks checklists.Repo
	var chunkStore ingest.ChunkStore
	if sqlDB != nil {
		docs = &documents.PGRepo{DB: sqlDB}
		checks = &checklists.PGRepo{DB: sqlDB}
		chunkStore = &ingest.PGChunkStore{DB: sqlDB}
	} else {
		docs = documents.NewMemoryRepo()
		checks = checklists.NewMemoryRepo()
	}

	debugStore, err := buildDebugStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var chatClient llm.ChatClient
	var fileClient llm.FileClient
	var embedder embed.Embedder
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		openaiClient, err := llmopenai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		chatClient = openaiClient
		fileClient = openaiClient
		embedder, err = embedopenai.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("bootstrap: OPENAI_API_KEY is not set; ingest jobs will fail")
	}

	runner := &ingest.Runner{
		Docs:       docs,
		Checklists: checks,
		Chat:       chatClient,
		Files:      fileClient,
		Embedder:   embedder,
		DebugStore: debugStore,
		Chunks:     chunkStore,
		Parser:     parse.NewParser(),
		Cfg:        cfg,
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Queue:  queueClient,
		Docs:   docs,
		Checks: checks,
		Runner: runner,
	}
	app.Ops = buildOpsRouter(app)
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	opts := db.OptionsFromEnv(db.DefaultWorkerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildDebugStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	bucket := cfg.DebugBucket
	if bucket == "" {
		bucket = cfg.S3Bucket
	}
	if cfg.ObjectStoreType == "s3" && bucket != "" {
		return s3store.New(ctx, cfg.AWSRegion, bucket, cfg.S3Prefix)
	}
	return localstore.New(cfg.LocalStoreDir), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// buildOpsRouter exposes the worker's health and metrics endpoints.
func buildOpsRouter(app *App) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		health := gin.H{"queue": "ok", "database": "ok"}
		if err := app.Queue.Ping(ctx); err != nil {
			health["queue"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if app.DB != nil {
			if err := app.DB.PingContext(ctx); err != nil {
				health["database"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		} else {
			health["database"] = "in-memory"
		}
		c.JSON(status, health)
	})
	router.GET("/metrics", metrics.Handler())
	return router
}
