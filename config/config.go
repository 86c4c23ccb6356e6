package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	MaxFileSizeBytes     int64
	MinChunkSizeBytes    int64
	MaxChunkSizeBytes    int64
	BatchSize            int
	MaxConcurrentBatches int
	MaxRecordsPerFile    int
	RetentionHours       int
	MaxStoredErrors      int
	MaxBatchRetries      int
	RetryBackoffSec      int
	CleanupIntervalMin   int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "debug"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "leadflow"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "leadflow-imports"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),

		MaxFileSizeBytes:     getEnvAsInt64("MAX_FILE_SIZE_BYTES", 100*1024*1024),
		MinChunkSizeBytes:    getEnvAsInt64("MIN_CHUNK_SIZE_BYTES", 256*1024),
		MaxChunkSizeBytes:    getEnvAsInt64("MAX_CHUNK_SIZE_BYTES", 4*1024*1024),
		BatchSize:            getEnvAsInt("BATCH_SIZE", 1000),
		MaxConcurrentBatches: getEnvAsInt("MAX_CONCURRENT_BATCHES", 5),
		MaxRecordsPerFile:    getEnvAsInt("MAX_RECORDS_PER_FILE", 500000),
		RetentionHours:       getEnvAsInt("RETENTION_HOURS", 72),
		MaxStoredErrors:      getEnvAsInt("MAX_STORED_ERRORS", 100),
		MaxBatchRetries:      getEnvAsInt("MAX_BATCH_RETRIES", 3),
		RetryBackoffSec:      getEnvAsInt("RETRY_BACKOFF_SEC", 60),
		CleanupIntervalMin:   getEnvAsInt("CLEANUP_INTERVAL_MIN", 60),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}
