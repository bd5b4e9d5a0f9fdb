// Пакет config — загрузка и валидация конфигурации File Manager
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// MaxFileSizeLimit — верхняя граница MAX_FILE_SIZE_BYTES. Оставляет
// запас на заголовки multipart в лимите тела запроса.
const MaxFileSizeLimit int64 = math.MaxInt64 - MultipartOverhead - 1

// MultipartOverhead — запас на заголовки и границы multipart сверх MAX_FILE_SIZE_BYTES.
const MultipartOverhead int64 = 1 << 20

// Драйверы хранилища метаданных.
const (
	MetadataPostgres = "postgres"
	MetadataSQLite   = "sqlite"
	MetadataMemory   = "memory"
)

// Драйверы chunked-бэкенда.
const (
	ChunkDriverPostgres = "postgres"
	ChunkDriverGridFS   = "gridfs"
)

// Config содержит все параметры конфигурации File Manager.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Базовый URL для построения ссылок на скачивание
	BaseURL string
	// Бэкенд хранения байтов, фиксирован на время жизни процесса
	StorageType model.BackendKind
	// Драйвер chunked-бэкенда (postgres, gridfs)
	ChunkStoreDriver string
	// Размер чанка в байтах
	ChunkSize int
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Директория локального бэкенда
	DataDir string

	// Драйвер хранилища метаданных (postgres, sqlite, memory)
	MetadataDriver string
	DBHost         string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string
	DBSSLMode      string
	// Путь к файлу SQLite (METADATA_DRIVER=sqlite)
	SQLitePath string

	// URI MongoDB для GridFS
	MongoURI string
	// Префикс коллекций GridFS (uploads → uploads.files, uploads.chunks)
	GridFSBucket string

	// Директория журнала загрузок (пусто — журнал отключён)
	WALDir string
	// Удалять блоб, если запись метаданных не удалась
	OrphanCleanup bool

	// Размер LRU-кэша метаданных (0 — кэш отключён)
	MetadataCacheSize int
	// TTL записей LRU-кэша
	MetadataCacheTTL time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя вершины графа текущего приложения
	ServiceID string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// PORT — порт HTTP-сервера (по умолчанию 5000)
	port, err := getEnvInt("PORT", 5000)
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// BASE_URL — по умолчанию http://localhost:{PORT}
	cfg.BaseURL = strings.TrimRight(getEnvDefault("BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/")
	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("BASE_URL: некорректный URL %q", cfg.BaseURL)
	}

	// STORAGE_TYPE — local или chunked; gridfs — совместимый псевдоним chunked+gridfs
	storageType := strings.ToLower(getEnvDefault("STORAGE_TYPE", "local"))
	cfg.ChunkStoreDriver = strings.ToLower(getEnvDefault("CHUNK_STORE_DRIVER", ChunkDriverPostgres))
	if storageType == ChunkDriverGridFS {
		storageType = string(model.BackendChunked)
		cfg.ChunkStoreDriver = ChunkDriverGridFS
	}
	cfg.StorageType, err = model.ParseBackendKind(storageType)
	if err != nil {
		return nil, fmt.Errorf("STORAGE_TYPE: %w", err)
	}
	if cfg.ChunkStoreDriver != ChunkDriverPostgres && cfg.ChunkStoreDriver != ChunkDriverGridFS {
		return nil, fmt.Errorf("CHUNK_STORE_DRIVER: недопустимое значение %q, допустимые: postgres, gridfs", cfg.ChunkStoreDriver)
	}

	// CHUNK_SIZE_BYTES — по умолчанию 255 КБ, как в GridFS
	cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE_BYTES", 255*1024)
	if err != nil {
		return nil, fmt.Errorf("CHUNK_SIZE_BYTES: %w", err)
	}
	if cfg.ChunkSize <= 0 || cfg.ChunkSize > 16*1024*1024 {
		return nil, fmt.Errorf("CHUNK_SIZE_BYTES: значение %d вне диапазона 1-16777216", cfg.ChunkSize)
	}

	// MAX_FILE_SIZE_BYTES — по умолчанию 200 000 000
	cfg.MaxFileSize, err = getEnvInt64("MAX_FILE_SIZE_BYTES", 200000000)
	if err != nil {
		return nil, fmt.Errorf("MAX_FILE_SIZE_BYTES: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE_BYTES: значение должно быть положительным")
	}
	if cfg.MaxFileSize > MaxFileSizeLimit {
		return nil, fmt.Errorf("MAX_FILE_SIZE_BYTES: значение %d превышает максимум %d", cfg.MaxFileSize, MaxFileSizeLimit)
	}

	cfg.DataDir = getEnvDefault("DATA_DIR", "./uploads")

	// METADATA_DRIVER — хранилище метаданных
	cfg.MetadataDriver = strings.ToLower(getEnvDefault("METADATA_DRIVER", MetadataPostgres))
	switch cfg.MetadataDriver {
	case MetadataPostgres, MetadataSQLite, MetadataMemory:
	default:
		return nil, fmt.Errorf("METADATA_DRIVER: недопустимое значение %q, допустимые: postgres, sqlite, memory", cfg.MetadataDriver)
	}

	cfg.DBHost = getEnvDefault("DB_HOST", "localhost")
	cfg.DBPort, err = getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("DB_NAME", "file_manager")
	cfg.DBUser = getEnvDefault("DB_USER", "file_manager")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBSSLMode = getEnvDefault("DB_SSL_MODE", "disable")
	cfg.SQLitePath = getEnvDefault("SQLITE_PATH", "./file_manager.db")

	cfg.MongoURI = getEnvDefault("MONGODB_URI", "mongodb://localhost:27017/file_uploads")
	cfg.GridFSBucket = getEnvDefault("GRIDFS_BUCKET", "uploads")

	cfg.WALDir = os.Getenv("WAL_DIR")
	cfg.OrphanCleanup, err = getEnvBool("ORPHAN_CLEANUP", true)
	if err != nil {
		return nil, fmt.Errorf("ORPHAN_CLEANUP: %w", err)
	}

	cfg.MetadataCacheSize, err = getEnvInt("METADATA_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("METADATA_CACHE_SIZE: %w", err)
	}
	if cfg.MetadataCacheSize < 0 {
		return nil, fmt.Errorf("METADATA_CACHE_SIZE: значение не может быть отрицательным")
	}
	cfg.MetadataCacheTTL, err = getEnvDuration("METADATA_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("METADATA_CACHE_TTL: %w", err)
	}

	// LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	// LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.TLSCert = os.Getenv("TLS_CERT")
	cfg.TLSKey = os.Getenv("TLS_KEY")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("TLS_CERT и TLS_KEY задаются только вместе")
	}

	cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.DephealthCheckInterval, err = getEnvDuration("DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("DEPHEALTH_GROUP", "file-manager")
	// SERVICE_ID — по умолчанию имя владельца пода (Deployment/StatefulSet)
	cfg.ServiceID = os.Getenv("SERVICE_ID")
	if cfg.ServiceID == "" {
		cfg.ServiceID = defaultServiceID()
	}

	return cfg, nil
}

// UsesPostgres сообщает, нужен ли пул PostgreSQL хотя бы одному компоненту.
func (c *Config) UsesPostgres() bool {
	if c.MetadataDriver == MetadataPostgres {
		return true
	}
	return c.StorageType == model.BackendChunked && c.ChunkStoreDriver == ChunkDriverPostgres
}

// UsesGridFS сообщает, работает ли chunked-бэкенд через MongoDB GridFS.
func (c *Config) UsesGridFS() bool {
	return c.StorageType == model.BackendChunked && c.ChunkStoreDriver == ChunkDriverGridFS
}

// DatabaseDSN возвращает DSN для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для метрик и лейблов).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(c.DBUser),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает bool значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
