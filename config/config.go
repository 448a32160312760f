package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	DBUrl    string
	// Auth
	JWTSecret         string
	AccessTokenExpiry time.Duration
	AllowedOrigin     string
	// DB Pool
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string
	R2UploadTimeout   time.Duration
	// Import pipeline
	ImportBatchSize     int    // rows per invocation; image mirroring dominates latency, keep small
	ImportCSVObject     string // object key of the supplier sheet inside the bucket
	DefaultSupplierID   string
	SupplierEmailDomain string
	ImageUploadMode     string // "await" or "background"
	ImageFetchTimeout   time.Duration
	// Records source (hosted table API)
	RecordsAPIURL   string // e.g. https://api.airtable.com/v0/{baseId}/{table}
	RecordsAPIToken string
	RecordsTimeout  time.Duration
	// Text generation (audience classifier)
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration
	// Upload Configuration
	MaxUploadSizeMB int64
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: Try loading .env (standard local dev)
		// In docker/prod envs .env might not exist and we rely on system env vars.
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DBUrl:    getEnv("DB_DSN", ""),

		JWTSecret:         getEnv("JWT_SECRET", "default_secret_CHANGE_ME"),
		AccessTokenExpiry: getDurationEnv("ACCESS_TOKEN_EXPIRY", time.Hour*24),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 20),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 2),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		// R2 Storage
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		R2UploadTimeout:   getDurationEnv("R2_UPLOAD_TIMEOUT", 30*time.Second),

		// Import: 3 rows per call keeps each invocation inside the request budget
		ImportBatchSize:     getIntEnv("IMPORT_BATCH_SIZE", 3),
		ImportCSVObject:     getEnv("IMPORT_CSV_OBJECT", "imports/catalog.csv"),
		DefaultSupplierID:   getEnv("DEFAULT_SUPPLIER_ID", ""),
		SupplierEmailDomain: getEnv("SUPPLIER_EMAIL_DOMAIN", "suppliers.pawmarket.example"),
		ImageUploadMode:     getEnv("IMAGE_UPLOAD_MODE", "await"),
		ImageFetchTimeout:   getDurationEnv("IMAGE_FETCH_TIMEOUT", 20*time.Second),

		RecordsAPIURL:   getEnv("RECORDS_API_URL", ""),
		RecordsAPIToken: getEnv("RECORDS_API_TOKEN", ""),
		RecordsTimeout:  getDurationEnv("RECORDS_API_TIMEOUT", 15*time.Second),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout: getDurationEnv("GEMINI_TIMEOUT", 60*time.Second),

		MaxUploadSizeMB: getInt64Env("MAX_UPLOAD_SIZE_MB", 10),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.DBUrl == "" {
		log.Fatal("CRITICAL: DB_DSN environment variable is required")
	}
	if c.JWTSecret == "default_secret_CHANGE_ME" {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
	if c.ImageUploadMode != "await" && c.ImageUploadMode != "background" {
		log.Fatalf("CRITICAL: IMAGE_UPLOAD_MODE must be 'await' or 'background', got %q", c.ImageUploadMode)
	}
	if c.ImportBatchSize < 1 {
		log.Fatal("CRITICAL: IMPORT_BATCH_SIZE must be at least 1")
	}
	if c.GeminiAPIKey == "" {
		log.Println("WARNING: GEMINI_API_KEY not set; every product will get the fallback audience tag")
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}

func getInt32Env(key string, fallback int32) int32 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
		log.Printf("Invalid int32 for %s, using fallback", key)
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
		log.Printf("Invalid int64 for %s, using fallback", key)
	}
	return fallback
}
