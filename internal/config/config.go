package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string
	Import      ImportConfig
}

// ImportConfig enumerates every tunable of the bulk import engine. Zero values
// are never valid; DefaultImportConfig documents the defaults.
type ImportConfig struct {
	MaxUploadBytes    int64         `toml:"max_upload_bytes"`
	ChunkSize         int           `toml:"chunk_size"`
	CacheTTL          time.Duration `toml:"cache_ttl"`
	MaxCacheEntries   int           `toml:"max_cache_entries"`
	SessionTTL        time.Duration `toml:"session_ttl"`
	SnapshotRetention time.Duration `toml:"snapshot_retention"`
	AuditRetention    time.Duration `toml:"audit_retention"`
	CleanupSchedule   string        `toml:"cleanup_schedule"`
	WriteBatchSize    int           `toml:"write_batch_size"`
	AutoFix           bool          `toml:"auto_fix"`

	// WarningScript is a tengo script evaluated per row; empty disables it.
	WarningScript string `toml:"warning_script"`
	// WarningMaxRatio enables the batch median rule when positive: rows whose
	// gross pay exceeds the batch median by this factor get a warning.
	WarningMaxRatio float64 `toml:"warning_max_ratio"`
	// WarningCeiling flags any gross pay above this amount when positive.
	WarningCeiling float64 `toml:"warning_ceiling"`

	// MatchEmployees marks rows whose 사번 is missing from the employee
	// register as unmatched.
	MatchEmployees bool `toml:"match_employees"`

	// ForceCompensating disables transactional rollback even when the
	// deployment supports it.
	ForceCompensating bool `toml:"force_compensating"`
}

func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		MaxUploadBytes:    10 << 20,
		ChunkSize:         1000,
		CacheTTL:          5 * time.Minute,
		MaxCacheEntries:   100,
		SessionTTL:        30 * time.Minute,
		SnapshotRetention: 7 * 24 * time.Hour,
		AuditRetention:    90 * 24 * time.Hour,
		CleanupSchedule:   "@every 1h",
		WriteBatchSize:    500,
		AutoFix:           true,
	}
}

// Validate rejects settings the engine cannot run with.
func (c ImportConfig) Validate() error {
	switch {
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("max_upload_bytes must be positive")
	case c.ChunkSize <= 0:
		return fmt.Errorf("chunk_size must be positive")
	case c.CacheTTL <= 0:
		return fmt.Errorf("cache_ttl must be positive")
	case c.MaxCacheEntries <= 0:
		return fmt.Errorf("max_cache_entries must be positive")
	case c.SessionTTL <= 0:
		return fmt.Errorf("session_ttl must be positive")
	case c.SnapshotRetention <= 0:
		return fmt.Errorf("snapshot_retention must be positive")
	case c.AuditRetention < c.SnapshotRetention:
		return fmt.Errorf("audit_retention must not be shorter than snapshot_retention")
	case c.WriteBatchSize <= 0:
		return fmt.Errorf("write_batch_size must be positive")
	case c.CleanupSchedule == "":
		return fmt.Errorf("cleanup_schedule is required")
	case c.WarningMaxRatio < 0:
		return fmt.Errorf("warning_max_ratio must not be negative")
	case c.WarningCeiling < 0:
		return fmt.Errorf("warning_ceiling must not be negative")
	}
	if _, err := cron.ParseStandard(c.CleanupSchedule); err != nil {
		return fmt.Errorf("invalid cleanup_schedule %q: %w", c.CleanupSchedule, err)
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	importCfg, err := loadImportConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "payroll"),
		SkipAuth:    getEnvBool("SKIP_AUTH", false),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-payroll"),
		Import:      importCfg,
	}, nil
}

// loadImportConfig layers defaults, an optional TOML file and environment
// overrides, in that order.
func loadImportConfig() (ImportConfig, error) {
	cfg := DefaultImportConfig()

	if path := os.Getenv("IMPORT_CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read import config: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse import config %s: %w", path, err)
		}
	}

	cfg.MaxUploadBytes = int64(getEnvInt("IMPORT_MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.ChunkSize = getEnvInt("IMPORT_CHUNK_SIZE", cfg.ChunkSize)
	cfg.CacheTTL = getEnvDuration("IMPORT_CACHE_TTL", cfg.CacheTTL)
	cfg.MaxCacheEntries = getEnvInt("IMPORT_MAX_CACHE_ENTRIES", cfg.MaxCacheEntries)
	cfg.SessionTTL = getEnvDuration("IMPORT_SESSION_TTL", cfg.SessionTTL)
	cfg.SnapshotRetention = getEnvDuration("IMPORT_SNAPSHOT_RETENTION", cfg.SnapshotRetention)
	cfg.AuditRetention = getEnvDuration("IMPORT_AUDIT_RETENTION", cfg.AuditRetention)
	cfg.CleanupSchedule = getEnv("IMPORT_CLEANUP_SCHEDULE", cfg.CleanupSchedule)
	cfg.WriteBatchSize = getEnvInt("IMPORT_WRITE_BATCH_SIZE", cfg.WriteBatchSize)
	cfg.AutoFix = getEnvBool("IMPORT_AUTO_FIX", cfg.AutoFix)
	cfg.WarningMaxRatio = getEnvFloat("IMPORT_WARNING_MAX_RATIO", cfg.WarningMaxRatio)
	cfg.WarningCeiling = getEnvFloat("IMPORT_WARNING_CEILING", cfg.WarningCeiling)
	cfg.ForceCompensating = getEnvBool("IMPORT_FORCE_COMPENSATING", cfg.ForceCompensating)
	cfg.MatchEmployees = getEnvBool("IMPORT_MATCH_EMPLOYEES", cfg.MatchEmployees)
	if path := os.Getenv("IMPORT_WARNING_SCRIPT_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read warning script: %w", err)
		}
		cfg.WarningScript = string(raw)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid import config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return fallback
}
