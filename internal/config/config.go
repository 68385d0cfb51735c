package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string
	LogPretty     bool

	DatabaseURL     string
	SellsBackendURL string
	BooksBackendURL string
	RemoteTimeout   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SnapshotTTL   time.Duration

	AuthSecret            string
	AccessTokenTTLMinutes int

	RefreshSchedule string

	ArchiveBucket    string
	ArchiveRegion    string
	ArchivePrefix    string
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string

	PDFCompany      string
	PDFContactName  string
	PDFContactPhone string
	PDFContactEmail string
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getBool("LOG_PRETTY", false),

		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SellsBackendURL: strings.TrimSpace(os.Getenv("SELLS_BACKEND_URL")),
		BooksBackendURL: strings.TrimSpace(os.Getenv("BOOKS_BACKEND_URL")),
		RemoteTimeout:   time.Duration(getPositiveInt("REMOTE_TIMEOUT_SECONDS", 15)) * time.Second,

		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		SnapshotTTL:   time.Duration(getPositiveInt("SNAPSHOT_TTL_SECONDS", 30)) * time.Second,

		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: getPositiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@every 60s"),

		ArchiveBucket:    strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")),
		ArchiveRegion:    getEnv("ARCHIVE_S3_REGION", "ap-south-1"),
		ArchivePrefix:    getEnv("ARCHIVE_S3_PREFIX", "exports"),
		ArchiveEndpoint:  strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT")),
		ArchiveAccessKey: strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY_ID")),
		ArchiveSecretKey: strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_ACCESS_KEY")),

		PDFCompany:      getEnv("PDF_COMPANY", "Hemraj Industries Pvt. Ltd."),
		PDFContactName:  os.Getenv("PDF_CONTACT_NAME"),
		PDFContactPhone: os.Getenv("PDF_CONTACT_PHONE"),
		PDFContactEmail: os.Getenv("PDF_CONTACT_EMAIL"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// AllowedOrigins splits ALLOWED_ORIGIN on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowedOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func (c Config) RemoteEnabled() bool {
	return c.SellsBackendURL != "" && c.BooksBackendURL != ""
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getPositiveInt(key string, fallback int) int {
	v := getInt(key, fallback)
	if v < 1 {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
