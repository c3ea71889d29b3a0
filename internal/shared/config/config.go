package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds worker configuration.
type Config struct {
	Env             string
	RedisURL        string
	QueueName       string
	DatabaseURL     string
	OpenAIAPIKey    string
	LLMModel        string
	EmbeddingModel  string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	DebugBucket     string

	UseChecklistBlocks bool
	UsePDFAsFile       bool
	PersistChunks      bool

	ChunkMinChars     int
	ChunkMaxChars     int
	ChunkOverlapChars int
	TopKRetrieval     int
	TopNForMMR        int
	MMRLambda         float64

	PDFBlockDelaySec    int
	BlockConcurrency    int
	DownloadTimeoutSec  int
	DownloadMaxBytes    int64
	OpsPort             string
	ShutdownTimeoutSec  int
	MigrateOnStart      bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	_ = godotenv.Load(".env")
	_ = godotenv.Load("cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Env:             env,
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		QueueName:       getEnv("INGEST_QUEUE", "document:ingest"),
		DatabaseURL:     dbURL,
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		DebugBucket:     getEnv("DEBUG_BUCKET", ""),

		UseChecklistBlocks: getEnvBool("USE_CHECKLIST_BLOCKS", true),
		UsePDFAsFile:       getEnvBool("USE_PDF_AS_FILE", false),
		PersistChunks:      getEnvBool("PERSIST_CHUNKS", false),

		ChunkMinChars:     getEnvInt("CHUNK_MIN_CHARS", 800),
		ChunkMaxChars:     getEnvInt("CHUNK_MAX_CHARS", 1200),
		ChunkOverlapChars: getEnvInt("CHUNK_OVERLAP_CHARS", 150),
		TopKRetrieval:     getEnvInt("TOP_K_RETRIEVAL", 12),
		TopNForMMR:        getEnvInt("TOP_N_FOR_MMR", 40),
		MMRLambda:         getEnvFloat("MMR_LAMBDA", 0.7),

		PDFBlockDelaySec:   getEnvInt("PDF_BLOCK_DELAY_SEC", 0),
		BlockConcurrency:   getEnvInt("BLOCK_CONCURRENCY", 4),
		DownloadTimeoutSec: getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 300),
		DownloadMaxBytes:   int64(getEnvInt("DOWNLOAD_MAX_BYTES", 100<<20)),
		OpsPort:            getEnv("OPS_PORT", "8081"),
		ShutdownTimeoutSec: getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 30),
		MigrateOnStart:     getEnvBool("MIGRATE_ON_START", false),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q; using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: %s invalid float %q; using %g", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return def
	}
	switch raw {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
