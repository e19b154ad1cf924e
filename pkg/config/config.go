package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Ledger storage backends.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Replica drivers for the post-commit sync hook.
const (
	SyncDriverDirectory = "dir"
	SyncDriverS3        = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Ledger      LedgerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Cache       CacheConfig
	JWT         JWTConfig
	Credentials CredentialsConfig
	CORS        CORSConfig
	Log         LogConfig
	Sync        SyncConfig
	Import      ImportConfig
}

// LedgerConfig selects and tunes the record store backend.
type LedgerConfig struct {
	Backend       string
	DataDir       string
	SQLitePath    string
	LockTimeout   time.Duration
	WipeCode      string
	ArchiveOnWipe bool
	StrictCatalog bool
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig gates the roster listing cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// CredentialsConfig points at the YAML user store.
type CredentialsConfig struct {
	File string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SyncConfig configures best-effort replication of committed ledger files.
type SyncConfig struct {
	Enabled     bool
	Driver      string
	Dir         string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3PathStyle bool
	Workers     int
	Retries     int
	RetryDelay  time.Duration
	BufferSize  int
}

// ImportConfig bounds bulk upload payloads.
type ImportConfig struct {
	MaxFileSizeBytes int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Ledger = LedgerConfig{
		Backend:       strings.ToLower(v.GetString("LEDGER_BACKEND")),
		DataDir:       v.GetString("LEDGER_DATA_DIR"),
		SQLitePath:    v.GetString("LEDGER_SQLITE_PATH"),
		LockTimeout:   parseDuration(v.GetString("LEDGER_LOCK_TIMEOUT"), 5*time.Second),
		WipeCode:      v.GetString("LEDGER_WIPE_CODE"),
		ArchiveOnWipe: v.GetBool("LEDGER_ARCHIVE_ON_WIPE"),
		StrictCatalog: v.GetBool("LEDGER_STRICT_CATALOG"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_ROSTER_CACHE"),
		TTL:     parseDuration(v.GetString("ROSTER_CACHE_TTL"), 5*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Credentials = CredentialsConfig{File: v.GetString("CREDENTIALS_FILE")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Sync = SyncConfig{
		Enabled:     v.GetBool("SYNC_ENABLED"),
		Driver:      strings.ToLower(v.GetString("SYNC_DRIVER")),
		Dir:         v.GetString("SYNC_DIR"),
		S3Bucket:    v.GetString("SYNC_S3_BUCKET"),
		S3Region:    v.GetString("SYNC_S3_REGION"),
		S3Endpoint:  v.GetString("SYNC_S3_ENDPOINT"),
		S3Prefix:    v.GetString("SYNC_S3_PREFIX"),
		S3PathStyle: v.GetBool("SYNC_S3_PATH_STYLE"),
		Workers:     v.GetInt("SYNC_WORKERS"),
		Retries:     v.GetInt("SYNC_RETRIES"),
		RetryDelay:  parseDuration(v.GetString("SYNC_RETRY_DELAY"), 2*time.Second),
		BufferSize:  v.GetInt("SYNC_BUFFER_SIZE"),
	}

	maxImport := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxImport <= 0 {
		maxImport = 10 * 1024 * 1024
	}
	cfg.Import = ImportConfig{MaxFileSizeBytes: maxImport}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Ledger.Backend {
	case BackendCSV, BackendSQLite, BackendPostgres:
	default:
		return errors.New("LEDGER_BACKEND must be one of csv, sqlite, postgres")
	}
	if c.Sync.Enabled {
		switch c.Sync.Driver {
		case SyncDriverDirectory:
			if c.Sync.Dir == "" {
				return errors.New("SYNC_DIR is required for the dir sync driver")
			}
		case SyncDriverS3:
			if c.Sync.S3Bucket == "" {
				return errors.New("SYNC_S3_BUCKET is required for the s3 sync driver")
			}
		default:
			return errors.New("SYNC_DRIVER must be dir or s3")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("LEDGER_BACKEND", BackendCSV)
	v.SetDefault("LEDGER_DATA_DIR", "./data")
	v.SetDefault("LEDGER_SQLITE_PATH", "./data/roster.db")
	v.SetDefault("LEDGER_LOCK_TIMEOUT", "5s")
	v.SetDefault("LEDGER_WIPE_CODE", "")
	v.SetDefault("LEDGER_ARCHIVE_ON_WIPE", true)
	v.SetDefault("LEDGER_STRICT_CATALOG", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "roster_ledger")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_ROSTER_CACHE", false)
	v.SetDefault("ROSTER_CACHE_TTL", "5m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "roster-ledger")
	v.SetDefault("CREDENTIALS_FILE", "./data/credentials.yaml")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SYNC_ENABLED", false)
	v.SetDefault("SYNC_DRIVER", SyncDriverDirectory)
	v.SetDefault("SYNC_DIR", "")
	v.SetDefault("SYNC_S3_BUCKET", "")
	v.SetDefault("SYNC_S3_REGION", "us-east-1")
	v.SetDefault("SYNC_S3_ENDPOINT", "")
	v.SetDefault("SYNC_S3_PREFIX", "roster")
	v.SetDefault("SYNC_S3_PATH_STYLE", false)
	v.SetDefault("SYNC_WORKERS", 1)
	v.SetDefault("SYNC_RETRIES", 3)
	v.SetDefault("SYNC_RETRY_DELAY", "2s")
	v.SetDefault("SYNC_BUFFER_SIZE", 16)

	v.SetDefault("IMPORT_MAX_FILE_SIZE", 10*1024*1024)
}

// isMissingFile tolerates an absent .env, which viper reports as a plain fs error
// when SetConfigFile is used.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") ||
		strings.Contains(err.Error(), "cannot find the file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
