package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envPublicBaseURL         = "PUBLIC_BASE_URL"

	envDBHost     = "DB_HOST"
	envDBPort     = "DB_PORT"
	envDBName     = "DB_NAME"
	envDBUser     = "DB_USER"
	envDBPassword = "DB_PASSWORD"
	envDBSSLMode  = "DB_SSL_MODE"
	envDBMaxConns = "DB_MAX_CONNS"
	envDBMinConns = "DB_MIN_CONNS"

	envNasBaseURL        = "SYNOLOGY_BASE_URL"
	envNasAlternativeURL = "SYNOLOGY_ALTERNATIVE_URL"
	envNasPhotosURL      = "SYNOLOGY_PHOTOS_URL"
	envNasUsername       = "SYNOLOGY_USERNAME"
	envNasPassword       = "SYNOLOGY_PASSWORD"
	envNasTimeout        = "SYNOLOGY_TIMEOUT"
	envStorageRoot       = "SYNOLOGY_STORAGE_ROOT"
	envSmbSafeRoot       = "SMB_SAFE_ROOT"
	envPhotosFolderID    = "SYNOLOGY_PHOTOS_FOLDER_ID"

	envLocalUploadDir = "LOCAL_UPLOAD_DIR"

	envAWSRegion          = "REGION"
	envAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	envArchiveBucket      = "ARCHIVE_BUCKET"

	envMaxUploadSize     = "MAX_UPLOAD_SIZE"
	envMaxFilesPerUpload = "MAX_FILES_PER_UPLOAD"
	envCompressThreshold = "COMPRESS_THRESHOLD"
	envMaxImageDimension = "MAX_IMAGE_DIMENSION"
	envThumbnailSize     = "THUMBNAIL_SIZE"
)

const (
	defaultServerPort         = "8080"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 60 * time.Second
	defaultServerShutdown     = 10 * time.Second
	defaultPublicBaseURL      = "http://localhost:8080"

	defaultDBHost     = "localhost"
	defaultDBPort     = 5432
	defaultDBName     = "mediaservice"
	defaultDBUser     = "mediaservice_app"
	defaultDBSSLMode  = "disable"
	defaultDBMaxConns = 25
	defaultDBMinConns = 5

	defaultNasTimeout     = 30 * time.Second
	defaultStorageRoot    = "/marketing/thuvienanh"
	defaultSmbSafeRoot    = "/marketing"
	defaultPhotosFolderID = 1

	defaultLocalUploadDir = "public/uploads"

	defaultMaxUploadSize     = int64(10 * 1024 * 1024)
	defaultMaxFilesPerUpload = 20
	defaultCompressThreshold = int64(5 * 1024 * 1024)
	defaultMaxImageDimension = 1920
	defaultThumbnailSize     = 400

	errPortRequiredFmt         = "PORT must be set"
	errDBPasswordRequiredFmt   = "DB_PASSWORD must be set"
	errNasUsernameRequiredFmt  = "SYNOLOGY_USERNAME must be set"
	errNasPasswordRequiredFmt  = "SYNOLOGY_PASSWORD must be set"
	errStorageRootAbsoluteFmt  = "SYNOLOGY_STORAGE_ROOT must be an absolute path, got %q"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Nas      NasConfig
	Local    LocalConfig
	Archive  ArchiveConfig
	Upload   UploadConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	PublicBaseURL   string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

// NasConfig carries the single consolidated Synology credential set used by
// every NAS-backed storage backend. The FileStation and Photos API flavors
// share credentials but not base URLs or sessions.
type NasConfig struct {
	BaseURL        string
	AlternativeURL string
	PhotosURL      string
	Username       string
	Password       string
	Timeout        time.Duration
	StorageRoot    string
	SmbSafeRoot    string
	PhotosFolderID int
}

type LocalConfig struct {
	UploadDir string
}

type ArchiveConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

type UploadConfig struct {
	MaxUploadSize     int64
	MaxFilesPerUpload int
	CompressThreshold int64
	MaxImageDimension int
	ThumbnailSize     int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
			PublicBaseURL:   strings.TrimRight(getEnv(envPublicBaseURL, defaultPublicBaseURL), "/"),
		},
		Database: DatabaseConfig{
			Host:     getEnv(envDBHost, defaultDBHost),
			Port:     getIntEnv(envDBPort, defaultDBPort),
			Database: getEnv(envDBName, defaultDBName),
			User:     getEnv(envDBUser, defaultDBUser),
			Password: os.Getenv(envDBPassword),
			SSLMode:  getEnv(envDBSSLMode, defaultDBSSLMode),
			MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns: getIntEnv(envDBMinConns, defaultDBMinConns),
		},
		Nas: NasConfig{
			BaseURL:        strings.TrimRight(os.Getenv(envNasBaseURL), "/"),
			AlternativeURL: strings.TrimRight(os.Getenv(envNasAlternativeURL), "/"),
			PhotosURL:      strings.TrimRight(os.Getenv(envNasPhotosURL), "/"),
			Username:       os.Getenv(envNasUsername),
			Password:       os.Getenv(envNasPassword),
			Timeout:        getDurationEnv(envNasTimeout, defaultNasTimeout),
			StorageRoot:    getEnv(envStorageRoot, defaultStorageRoot),
			SmbSafeRoot:    getEnv(envSmbSafeRoot, defaultSmbSafeRoot),
			PhotosFolderID: getIntEnv(envPhotosFolderID, defaultPhotosFolderID),
		},
		Local: LocalConfig{
			UploadDir: getEnv(envLocalUploadDir, defaultLocalUploadDir),
		},
		Archive: ArchiveConfig{
			Region:          os.Getenv(envAWSRegion),
			AccessKeyID:     os.Getenv(envAWSAccessKeyID),
			SecretAccessKey: os.Getenv(envAWSSecretAccessKey),
			Bucket:          os.Getenv(envArchiveBucket),
		},
		Upload: UploadConfig{
			MaxUploadSize:     getInt64Env(envMaxUploadSize, defaultMaxUploadSize),
			MaxFilesPerUpload: getIntEnv(envMaxFilesPerUpload, defaultMaxFilesPerUpload),
			CompressThreshold: getInt64Env(envCompressThreshold, defaultCompressThreshold),
			MaxImageDimension: getIntEnv(envMaxImageDimension, defaultMaxImageDimension),
			ThumbnailSize:     getIntEnv(envThumbnailSize, defaultThumbnailSize),
		},
	}

	if cfg.Nas.PhotosURL == "" {
		cfg.Nas.PhotosURL = cfg.Nas.BaseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if c.Database.Password == "" {
		return fmt.Errorf(errDBPasswordRequiredFmt)
	}

	// NAS credentials are optional as a set; a deployment may run on local
	// disk only. If the base URL is given the credentials must be complete.
	if c.Nas.BaseURL != "" {
		if c.Nas.Username == "" {
			return fmt.Errorf(errNasUsernameRequiredFmt)
		}
		if c.Nas.Password == "" {
			return fmt.Errorf(errNasPasswordRequiredFmt)
		}
	}

	if !strings.HasPrefix(c.Nas.StorageRoot, "/") {
		return fmt.Errorf(errStorageRootAbsoluteFmt, c.Nas.StorageRoot)
	}

	return nil
}

// ArchiveEnabled reports whether the optional S3 archival backend is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Bucket != "" && c.Archive.Region != "" &&
		c.Archive.AccessKeyID != "" && c.Archive.SecretAccessKey != ""
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
