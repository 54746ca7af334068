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

// Store backends understood by the dataset repository.
const (
	StoreBackendFile  = "file"
	StoreBackendRedis = "redis"
)

// Overpayment policies applied by the payment ledger.
const (
	OverpaymentReject = "reject"
	OverpaymentClamp  = "clamp"
	OverpaymentAllow  = "allow"
)

// Import row policies applied by the spreadsheet bridge.
const (
	ImportRowSkip  = "skip"
	ImportRowAbort = "abort"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store         StoreConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Secrets       SecretsConfig
	Ledger        LedgerConfig
	Grades        GradesConfig
	Import        ImportConfig
	Backups       BackupConfig
	Notifications NotificationConfig
	CORS          CORSConfig
	Log           LogConfig
}

// StoreConfig selects where the dataset document lives.
type StoreConfig struct {
	Backend          string
	DataFile         string
	RedisKey         string
	PrimaryClasses   []string
	MaxUpdateRetries int
}

type DatabaseConfig struct {
	AuditEnabled bool
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// SecretsConfig holds the shared secret guarding each protected action.
type SecretsConfig struct {
	Payments  string
	Deletions string
	Grades    string
}

// LedgerConfig tunes the payment ledger.
type LedgerConfig struct {
	OverpaymentPolicy string
}

// GradesConfig bounds accepted grade values.
type GradesConfig struct {
	Min float64
	Max float64
}

// ImportConfig controls spreadsheet import behaviour.
type ImportConfig struct {
	RowPolicy    string
	MaxFileBytes int64
}

// BackupConfig controls dataset snapshots taken before bulk imports.
type BackupConfig struct {
	Dir       string
	Retention time.Duration
}

// NotificationConfig controls the SMS notification worker pool.
type NotificationConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
	SchoolName string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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

	cfg.Store = StoreConfig{
		Backend:          strings.ToLower(v.GetString("STORE_BACKEND")),
		DataFile:         v.GetString("DATA_FILE"),
		RedisKey:         v.GetString("REDIS_DATASET_KEY"),
		PrimaryClasses:   splitAndTrim(v.GetString("PRIMARY_CLASSES")),
		MaxUpdateRetries: v.GetInt("STORE_MAX_UPDATE_RETRIES"),
	}

	cfg.Database = DatabaseConfig{
		AuditEnabled: v.GetBool("ENABLE_AUDIT_DB"),
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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*time.Minute),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Secrets = SecretsConfig{
		Payments:  v.GetString("PAYMENT_SECRET"),
		Deletions: v.GetString("DELETE_SECRET"),
		Grades:    v.GetString("GRADE_SECRET"),
	}

	cfg.Ledger = LedgerConfig{
		OverpaymentPolicy: oneOf(v.GetString("OVERPAYMENT_POLICY"), OverpaymentReject, OverpaymentReject, OverpaymentClamp, OverpaymentAllow),
	}

	cfg.Grades = GradesConfig{
		Min: v.GetFloat64("GRADE_MIN"),
		Max: v.GetFloat64("GRADE_MAX"),
	}
	if cfg.Grades.Max <= cfg.Grades.Min {
		cfg.Grades.Min, cfg.Grades.Max = 0, 20
	}

	maxImport := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxImport <= 0 {
		maxImport = 10 * 1024 * 1024
	}
	cfg.Import = ImportConfig{
		RowPolicy:    oneOf(v.GetString("IMPORT_ROW_POLICY"), ImportRowSkip, ImportRowSkip, ImportRowAbort),
		MaxFileBytes: maxImport,
	}

	cfg.Backups = BackupConfig{
		Dir:       v.GetString("BACKUP_DIR"),
		Retention: parseDuration(v.GetString("BACKUP_RETENTION"), 30*24*time.Hour),
	}

	cfg.Notifications = NotificationConfig{
		Enabled:    v.GetBool("NOTIFY_ENABLED"),
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		Retries:    v.GetInt("NOTIFY_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 5*time.Second),
		SchoolName: v.GetString("SCHOOL_NAME"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 10000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_BACKEND", StoreBackendFile)
	v.SetDefault("DATA_FILE", "data/inscriptions.yaml")
	v.SetDefault("REDIS_DATASET_KEY", "scolarite:dataset")
	v.SetDefault("PRIMARY_CLASSES", "MATERNELLE,PS,MS,GS,CP,CP1,CP2,CE1,CE2,CM1,CM2")
	v.SetDefault("STORE_MAX_UPDATE_RETRIES", 5)

	v.SetDefault("ENABLE_AUDIT_DB", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "scolarite")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "30m")
	v.SetDefault("JWT_ISSUER", "scolarite-api")

	v.SetDefault("PAYMENT_SECRET", "")
	v.SetDefault("DELETE_SECRET", "")
	v.SetDefault("GRADE_SECRET", "")

	v.SetDefault("OVERPAYMENT_POLICY", OverpaymentReject)
	v.SetDefault("GRADE_MIN", 0)
	v.SetDefault("GRADE_MAX", 20)
	v.SetDefault("IMPORT_ROW_POLICY", ImportRowSkip)
	v.SetDefault("IMPORT_MAX_FILE_SIZE", 10*1024*1024)

	v.SetDefault("BACKUP_DIR", "data/backups")
	v.SetDefault("BACKUP_RETENTION", "720h")

	v.SetDefault("NOTIFY_ENABLED", true)
	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "5s")
	v.SetDefault("SCHOOL_NAME", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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

// oneOf lower-cases raw and returns it when it is one of allowed, otherwise fallback.
func oneOf(raw, fallback string, allowed ...string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range allowed {
		if value == candidate {
			return value
		}
	}
	return fallback
}

// viper surfaces a missing explicit config file as a plain fs error rather than
// ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}
