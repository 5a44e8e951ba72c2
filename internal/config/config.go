package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DatabaseURL     string
	RedisAddr       string
	QueueBackend    string
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RateLimitPerMin int
	CORSOrigins     []string

	SheetURL         string
	SyncEnabled      bool
	SyncInterval     time.Duration
	SyncConfirmDelay time.Duration
	ScanCooldown     time.Duration
	DecodeInterval   time.Duration
	RosterFile       string

	BadgeTitle   string
	BadgeRetries int
	BadgeBackoff time.Duration

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		DatabaseURL:     getEnv("DATABASE_URL", "sqlite://data/checkin.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		QueueBackend:    getEnv("QUEUE_BACKEND", "memory"),
		JWTIssuer:       getEnv("JWT_ISSUER", "checkin"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:       durationEnv("ACCESS_TTL", 12*time.Hour),
		RefreshTTL:      durationEnv("REFRESH_TTL", 72*time.Hour),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 240),
		CORSOrigins:     listEnv("CORS_ORIGINS", []string{"*"}),

		SheetURL:         getEnv("SHEET_URL", ""),
		SyncEnabled:      boolEnv("SYNC_ENABLED", true),
		SyncInterval:     durationEnv("SYNC_INTERVAL", 8*time.Second),
		SyncConfirmDelay: durationEnv("SYNC_CONFIRM_DELAY", 1500*time.Millisecond),
		ScanCooldown:     durationEnv("SCAN_COOLDOWN", 3*time.Second),
		DecodeInterval:   durationEnv("DECODE_INTERVAL", time.Second),
		RosterFile:       getEnv("ROSTER_FILE", ""),

		BadgeTitle:   getEnv("BADGE_TITLE", ""),
		BadgeRetries: intEnv("BADGE_RETRIES", 3),
		BadgeBackoff: durationEnv("BADGE_BACKOFF", 300*time.Millisecond),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "badges"),
	}
}

// SyncConfigured reports whether the remote sheet is the roster source.
func (a App) SyncConfigured() bool {
	return a.SyncEnabled && a.SheetURL != ""
}

// CloudinaryEnabled reports whether badge publishing is configured.
func (a App) CloudinaryEnabled() bool {
	return a.CloudinaryCloudName != "" && a.CloudinaryAPIKey != "" && a.CloudinaryAPISecret != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
