package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAccessToken 未配置 TMDB 访问令牌
var ErrMissingAccessToken = errors.New("No access token provided")

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	JWTExpiry   time.Duration
	Port        string
	SiteName    string
	LogLevel    string

	// 文档存储
	StoreDriver   string
	MongoURL      string
	MongoDatabase string

	// Redis（可选，用于共享吊销列表）
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TMDB
	TMDBToken     string
	TMDBBaseURL   string
	TMDBRegion    string
	TMDBLanguage  string
	TMDBRateLimit float64

	SentryDSN         string
	ReconcileInterval time.Duration
	SessionMaxAge     time.Duration

	// HTTP
	CORSOrigins   []string
	AuthRateLimit float64
}

// Load 加载配置，缺少 TMDB 令牌时返回错误
func Load() (*Config, error) {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	rateLimit, _ := strconv.ParseFloat(getEnv("TMDB_RATE_LIMIT", "40"), 64)
	reconcileMinutes, _ := strconv.Atoi(getEnv("RECONCILE_INTERVAL_MINUTES", "15"))
	authRateLimit, _ := strconv.ParseFloat(getEnv("AUTH_RATE_LIMIT", "5"), 64)

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "watchwise")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", "your-secret-key-change-in-production"))

	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("[WARN] production is running with the default APP_SECRET, set APP_SECRET now")
	}

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		AppSecret:   appSecret,
		DatabaseURL: dbURL,
		JWTExpiry:   time.Duration(expiryHours) * time.Hour,
		Port:        getEnv("PORT", "5005"),
		SiteName:    getEnv("SITE_NAME", "WatchWise"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		StoreDriver:   getEnv("STORE_DRIVER", "postgres"),
		MongoURL:      getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "watchwise"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		TMDBToken:     os.Getenv("TMDB_ACCESS_TOKEN"),
		TMDBBaseURL:   getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBRegion:    getEnv("TMDB_REGION", "IN"),
		TMDBLanguage:  getEnv("TMDB_LANGUAGE", "en-IN"),
		TMDBRateLimit: rateLimit,

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		ReconcileInterval: time.Duration(reconcileMinutes) * time.Minute,
		SessionMaxAge:     7 * 24 * time.Hour,

		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "")),
		AuthRateLimit: authRateLimit,
	}

	if cfg.TMDBToken == "" {
		return nil, ErrMissingAccessToken
	}

	return cfg, nil
}

// splitList 逗号分隔的列表，忽略空项
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
