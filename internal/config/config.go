// Пакет config — загрузка и валидация конфигурации ingest-gateway
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации ingest-gateway.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Корень хранилища загруженных файлов
	StorageRoot string
	// Путь к YAML-файлу учётных данных устройств (пусто — тестовое устройство)
	CredentialsFile string
	// Максимальный размер тела запроса /upload в байтах
	MaxUploadSize int64

	// Путь к TLS сертификату (опционально, вместе с TLSKey)
	TLSCert string
	// Путь к TLS приватному ключу
	TLSKey string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Таймауты HTTP-сервера
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Размер и TTL кэша созданных директорий устройств
	DirCacheSize int
	DirCacheTTL  time.Duration

	// Интервал очистки временных файлов
	JanitorInterval time.Duration
	// Возраст, после которого временный файл считается брошенным
	TempMaxAge time.Duration

	// URL JWKS endpoint (пусто — административный API отключён)
	JWKSUrl string
	// Путь к CA-сертификату для проверки TLS JWKS endpoint (опционально)
	JWKSCACert string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления ключей JWKS
	JWKSRefreshInterval time.Duration
	// Допустимое расхождение часов при проверке exp/nbf
	JWTLeeway time.Duration

	// Идентификатор сервиса в метриках topologymetrics.
	// Пустой — выводится из hostname пода
	ServiceID string
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
}

// AdminAPIEnabled сообщает, настроен ли JWKS для административного API.
func (c *Config) AdminAPIEnabled() bool {
	return c.JWKSUrl != ""
}

// TLSEnabled сообщает, задан ли TLS сертификат.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// IG_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("IG_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("IG_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("IG_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// IG_STORAGE_ROOT — корень хранилища
	cfg.StorageRoot = getEnvDefault("IG_STORAGE_ROOT", "./uploaded_files")

	// IG_CREDENTIALS_FILE — YAML с учётными данными устройств
	cfg.CredentialsFile = getEnvDefault("IG_CREDENTIALS_FILE", "")

	// IG_MAX_UPLOAD_SIZE — лимит тела /upload (по умолчанию 32 MiB)
	cfg.MaxUploadSize, err = getEnvInt64("IG_MAX_UPLOAD_SIZE", 32<<20)
	if err != nil {
		return nil, fmt.Errorf("IG_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("IG_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}

	// IG_TLS_CERT / IG_TLS_KEY — задаются вместе или не задаются
	cfg.TLSCert = getEnvDefault("IG_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("IG_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("IG_TLS_CERT и IG_TLS_KEY должны быть заданы вместе")
	}

	// IG_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("IG_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("IG_LOG_LEVEL: %w", err)
	}

	// IG_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("IG_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("IG_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// Таймауты HTTP-сервера
	if cfg.ReadTimeout, err = getEnvPositiveDuration("IG_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = getEnvPositiveDuration("IG_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout, err = getEnvPositiveDuration("IG_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvPositiveDuration("IG_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	// IG_DIR_CACHE_SIZE / IG_DIR_CACHE_TTL — кэш созданных директорий
	cfg.DirCacheSize, err = getEnvInt("IG_DIR_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("IG_DIR_CACHE_SIZE: %w", err)
	}
	if cfg.DirCacheSize <= 0 {
		return nil, fmt.Errorf("IG_DIR_CACHE_SIZE: значение должно быть положительным")
	}
	if cfg.DirCacheTTL, err = getEnvPositiveDuration("IG_DIR_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	// IG_JANITOR_INTERVAL / IG_TEMP_MAX_AGE — очистка временных файлов
	if cfg.JanitorInterval, err = getEnvPositiveDuration("IG_JANITOR_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TempMaxAge, err = getEnvPositiveDuration("IG_TEMP_MAX_AGE", time.Hour); err != nil {
		return nil, err
	}

	// IG_JWKS_* — административный API
	cfg.JWKSUrl = getEnvDefault("IG_JWKS_URL", "")
	cfg.JWKSCACert = getEnvDefault("IG_JWKS_CA_CERT", "")
	if cfg.JWKSClientTimeout, err = getEnvPositiveDuration("IG_JWKS_CLIENT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.JWKSRefreshInterval, err = getEnvPositiveDuration("IG_JWKS_REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	cfg.JWTLeeway, err = getEnvDuration("IG_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IG_JWT_LEEWAY: %w", err)
	}
	if cfg.JWTLeeway < 0 {
		return nil, fmt.Errorf("IG_JWT_LEEWAY: значение не может быть отрицательным")
	}

	// topologymetrics
	cfg.ServiceID = getEnvDefault("IG_SERVICE_ID", "")
	cfg.DephealthGroup = getEnvDefault("IG_DEPHEALTH_GROUP", "ingest")
	if cfg.DephealthCheckInterval, err = getEnvPositiveDuration("IG_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
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

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 5m, 1h)", val)
	}
	return d, nil
}

// getEnvPositiveDuration — getEnvDuration с проверкой d > 0.
// Ошибка уже содержит имя переменной.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: значение должно быть положительным, получено %s", key, d)
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
