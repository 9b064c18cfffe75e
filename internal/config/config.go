package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gitlab.com/tozd/go/errors"
)

type Config struct {
	DBPath    string
	DBTimeout time.Duration

	HTTPAddr    string
	GinMode     string
	MaxUploadMB int

	LogLevel    string
	LogFormat   string
	LogRequests bool

	GoogleCredentialsFile   string
	GoogleCredentialsBase64 string
	SheetsTimeout           time.Duration
	SheetsRequestsPerSecond int

	ReferenceSpreadsheetID string
	ReferenceRange         string
	ImportSpreadsheetID    string
	ImportRange            string

	FileStore           string
	FileTTL             time.Duration
	FileStoreMaxEntries int
	FileSweepInterval   time.Duration

	RedisAddress  string
	RedisPassword string
	RedisDB       int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, errors.WithStack(err)
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "ortkod.db")),
		DBTimeout: time.Duration(getEnvInt("DB_TIMEOUT_MS", 5000)) * time.Millisecond,

		HTTPAddr:    getEnv("HTTP_ADDR", ":3000"),
		GinMode:     getEnv("GIN_MODE", "release"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 20),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		LogRequests: getEnvBool("LOG_REQUESTS", true),

		GoogleCredentialsFile:   getEnv("GOOGLE_CREDENTIALS_FILE", filepath.Join(cwd, "credentials.json")),
		GoogleCredentialsBase64: getEnv("GOOGLE_CREDENTIALS_BASE64", ""),
		SheetsTimeout:           time.Duration(getEnvInt("SHEETS_TIMEOUT_MS", 30000)) * time.Millisecond,
		SheetsRequestsPerSecond: getEnvInt("SHEETS_REQUESTS_PER_SECOND", 1),

		ReferenceSpreadsheetID: getEnv("REFERENCE_SPREADSHEET_ID", "1DrI9mqm9MaV_NtX7OAGbxbL1XdM1X5OTeDbg1XDLgUY"),
		ReferenceRange:         getEnv("REFERENCE_RANGE", "Makro Kontrol!A:G"),
		ImportSpreadsheetID:    getEnv("IMPORT_SPREADSHEET_ID", "1s8oYYkAtML4X4s4CoQu8jHrOajl2B842C9TTWuEVV7o"),
		ImportRange:            getEnv("IMPORT_RANGE", "Test!A2:AD2"),

		FileStore:           strings.ToLower(getEnv("FILE_STORE", "memory")),
		FileTTL:             time.Duration(getEnvInt("FILE_TTL_MINUTES", 60)) * time.Minute,
		FileStoreMaxEntries: getEnvInt("FILE_STORE_MAX_ENTRIES", 256),
		FileSweepInterval:   time.Duration(getEnvInt("FILE_SWEEP_INTERVAL_SEC", 60)) * time.Second,

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}

	if cfg.FileStore != "memory" && cfg.FileStore != "redis" {
		return Config{}, errors.Errorf("unsupported FILE_STORE: %s", cfg.FileStore)
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Errorf("missing required env var: %s", name)
	}
	return nil
}

func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
