package config

import (
	"strings"
	"time"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string
	Addr               string
	LogLevel           string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	TokenTTL           time.Duration
	AdminEmails        []string
	S3Endpoint         string
	S3Region           string
	S3Bucket           string
	S3AccessKey        string
	S3SecretKey        string
	S3PathStyle        bool
	S3Prefix           string
	UploadMaxBytes     int64
	UploadPartBytes    int64
	StreamChunkBytes   int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
	CORSOrigin         string
	EventHeartbeat     time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":1337"),
		LogLevel:           GetString("LOG_LEVEL", "info"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://music:music@db:5432/music_streaming?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		TokenTTL:           time.Duration(GetInt("TOKEN_TTL_HOURS", 24*7)) * time.Hour,
		AdminEmails:        GetList("ADMIN_EMAILS"),
		S3Endpoint:         GetString("S3_ENDPOINT", "http://minio:9000"),
		S3Region:           GetString("S3_REGION", "us-east-1"),
		S3Bucket:           GetString("S3_BUCKET", "uploads"),
		S3AccessKey:        GetString("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        GetString("S3_SECRET_KEY", "minioadmin"),
		S3PathStyle:        GetBool("S3_PATH_STYLE", true),
		S3Prefix:           strings.Trim(GetString("S3_PREFIX", "songs"), "/"),
		UploadMaxBytes:     int64(GetInt("UPLOAD_MAX_MB", 50)) << 20,
		UploadPartBytes:    int64(GetInt("UPLOAD_PART_MB", 8)) << 20,
		StreamChunkBytes:   GetInt("STREAM_CHUNK_KB", 64) << 10,
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		CORSOrigin:         GetString("CORS_ORIGIN", "http://localhost:5173"),
		EventHeartbeat:     GetDuration("EVENT_HEARTBEAT", 25*time.Second),
	}
}

// IsAdminEmail reports whether the address is listed in ADMIN_EMAILS.
func (c APIConfig) IsAdminEmail(email string) bool {
	for _, admin := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}
