package config

import (
	"os"
	"strconv"
)

// Store and blob backend names.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	BlobDisk      = "disk"
	BlobMinIO     = "minio"
)

// DefaultMaxUploadBytes is the upload size cap (20 MiB).
const DefaultMaxUploadBytes = 20 << 20

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StoreConfig selects where the entry collection lives.
type StoreConfig struct {
	Backend  string
	DataFile string
}

// BlobConfig selects where uploaded files live and how they are served.
type BlobConfig struct {
	Backend          string
	UploadsDir       string
	URLPrefix        string
	MaxUploadBytes   int64
	PresignDownloads bool
	PresignExpirySec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost            string
	Port               string
	LogLevel           string
	CascadeMediaDelete bool
	Store              StoreConfig
	Blob               BlobConfig
	Database           DatabaseConfig
	MinIO              MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:            getEnv("APP_HOST", "localhost:3000"),
		Port:               getEnv("PORT", "3000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CascadeMediaDelete: getEnvBool("CASCADE_MEDIA_DELETE", false),
		Store: StoreConfig{
			Backend:  getEnv("STORE_BACKEND", StoreFile),
			DataFile: getEnv("DATA_FILE", "lore.json"),
		},
		Blob: BlobConfig{
			Backend:          getEnv("BLOB_BACKEND", BlobDisk),
			UploadsDir:       getEnv("UPLOADS_DIR", "uploads"),
			URLPrefix:        getEnv("UPLOADS_URL_PREFIX", "/uploads/"),
			MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
			PresignDownloads: getEnvBool("PRESIGN_DOWNLOADS", false),
			PresignExpirySec: getEnvInt("PRESIGN_EXPIRY_SEC", 900),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
