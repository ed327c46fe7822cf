package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// allKeys — все переменные окружения, которые читает Load.
var allKeys = []string{
	"IG_PORT", "IG_STORAGE_ROOT", "IG_CREDENTIALS_FILE", "IG_MAX_UPLOAD_SIZE",
	"IG_TLS_CERT", "IG_TLS_KEY", "IG_LOG_LEVEL", "IG_LOG_FORMAT",
	"IG_HTTP_READ_TIMEOUT", "IG_HTTP_WRITE_TIMEOUT", "IG_HTTP_IDLE_TIMEOUT",
	"IG_SHUTDOWN_TIMEOUT", "IG_DIR_CACHE_SIZE", "IG_DIR_CACHE_TTL",
	"IG_JANITOR_INTERVAL", "IG_TEMP_MAX_AGE",
	"IG_JWKS_URL", "IG_JWKS_CA_CERT", "IG_JWKS_CLIENT_TIMEOUT",
	"IG_JWKS_REFRESH_INTERVAL", "IG_JWT_LEEWAY",
	"IG_SERVICE_ID", "IG_DEPHEALTH_GROUP", "IG_DEPHEALTH_CHECK_INTERVAL",
}

// clearAllIGEnvVars очищает все переменные IG_* на время теста.
// t.Setenv восстанавливает исходные значения после теста.
func clearAllIGEnvVars(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// setEnvVars устанавливает переменные окружения на время теста.
func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearAllIGEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.StorageRoot != "./uploaded_files" {
		t.Errorf("StorageRoot: ожидалось './uploaded_files', получено %q", cfg.StorageRoot)
	}
	if cfg.CredentialsFile != "" {
		t.Errorf("CredentialsFile: ожидалась пустая строка, получено %q", cfg.CredentialsFile)
	}
	if cfg.MaxUploadSize != 33554432 {
		t.Errorf("MaxUploadSize: ожидалось 33554432, получено %d", cfg.MaxUploadSize)
	}
	if cfg.TLSEnabled() {
		t.Error("TLS не должен быть включён по умолчанию")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось INFO, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось 'json', получено %q", cfg.LogFormat)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout: ожидалось 30s, получено %v", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 60*time.Second {
		t.Errorf("WriteTimeout: ожидалось 60s, получено %v", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 120*time.Second {
		t.Errorf("IdleTimeout: ожидалось 120s, получено %v", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 10s, получено %v", cfg.ShutdownTimeout)
	}
	if cfg.DirCacheSize != 1024 {
		t.Errorf("DirCacheSize: ожидалось 1024, получено %d", cfg.DirCacheSize)
	}
	if cfg.DirCacheTTL != 5*time.Minute {
		t.Errorf("DirCacheTTL: ожидалось 5m, получено %v", cfg.DirCacheTTL)
	}
	if cfg.JanitorInterval != 10*time.Minute {
		t.Errorf("JanitorInterval: ожидалось 10m, получено %v", cfg.JanitorInterval)
	}
	if cfg.TempMaxAge != time.Hour {
		t.Errorf("TempMaxAge: ожидалось 1h, получено %v", cfg.TempMaxAge)
	}
	if cfg.AdminAPIEnabled() {
		t.Error("административный API не должен быть включён без IG_JWKS_URL")
	}
	if cfg.JWKSClientTimeout != 10*time.Second {
		t.Errorf("JWKSClientTimeout: ожидалось 10s, получено %v", cfg.JWKSClientTimeout)
	}
	if cfg.JWKSRefreshInterval != 15*time.Minute {
		t.Errorf("JWKSRefreshInterval: ожидалось 15m, получено %v", cfg.JWKSRefreshInterval)
	}
	if cfg.JWTLeeway != 5*time.Second {
		t.Errorf("JWTLeeway: ожидалось 5s, получено %v", cfg.JWTLeeway)
	}
	if cfg.ServiceID != "" {
		t.Errorf("ServiceID: ожидалась пустая строка, получено %q", cfg.ServiceID)
	}
	if cfg.DephealthGroup != "ingest" {
		t.Errorf("DephealthGroup: ожидалось 'ingest', получено %q", cfg.DephealthGroup)
	}
	if cfg.DephealthCheckInterval != 15*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 15s, получено %v", cfg.DephealthCheckInterval)
	}
}

func TestLoad_AllCustomValues(t *testing.T) {
	clearAllIGEnvVars(t)
	setEnvVars(t, map[string]string{
		"IG_PORT":                     "9090",
		"IG_STORAGE_ROOT":             "/data/uploads",
		"IG_CREDENTIALS_FILE":         "/etc/ingest/devices.yaml",
		"IG_MAX_UPLOAD_SIZE":          "1048576",
		"IG_TLS_CERT":                 "/tmp/tls.crt",
		"IG_TLS_KEY":                  "/tmp/tls.key",
		"IG_LOG_LEVEL":                "debug",
		"IG_LOG_FORMAT":               "text",
		"IG_HTTP_READ_TIMEOUT":        "5s",
		"IG_HTTP_WRITE_TIMEOUT":       "15s",
		"IG_HTTP_IDLE_TIMEOUT":        "1m",
		"IG_SHUTDOWN_TIMEOUT":         "3s",
		"IG_DIR_CACHE_SIZE":           "16",
		"IG_DIR_CACHE_TTL":            "30s",
		"IG_JANITOR_INTERVAL":         "1m",
		"IG_TEMP_MAX_AGE":             "10m",
		"IG_JWKS_URL":                 "https://admin.example.com/.well-known/jwks.json",
		"IG_JWKS_CA_CERT":             "/etc/ssl/ca.crt",
		"IG_JWKS_CLIENT_TIMEOUT":      "2s",
		"IG_JWKS_REFRESH_INTERVAL":    "1h",
		"IG_JWT_LEEWAY":               "0s",
		"IG_SERVICE_ID":               "ingest-edge-01",
		"IG_DEPHEALTH_GROUP":          "edge",
		"IG_DEPHEALTH_CHECK_INTERVAL": "30s",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port: ожидалось 9090, получено %d", cfg.Port)
	}
	if cfg.StorageRoot != "/data/uploads" {
		t.Errorf("StorageRoot: получено %q", cfg.StorageRoot)
	}
	if cfg.CredentialsFile != "/etc/ingest/devices.yaml" {
		t.Errorf("CredentialsFile: получено %q", cfg.CredentialsFile)
	}
	if cfg.MaxUploadSize != 1048576 {
		t.Errorf("MaxUploadSize: ожидалось 1048576, получено %d", cfg.MaxUploadSize)
	}
	if !cfg.TLSEnabled() {
		t.Error("TLS должен быть включён")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось DEBUG, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось 'text', получено %q", cfg.LogFormat)
	}
	if cfg.ReadTimeout != 5*time.Second || cfg.WriteTimeout != 15*time.Second || cfg.IdleTimeout != time.Minute {
		t.Errorf("таймауты HTTP: получено %v/%v/%v", cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 3s, получено %v", cfg.ShutdownTimeout)
	}
	if cfg.DirCacheSize != 16 || cfg.DirCacheTTL != 30*time.Second {
		t.Errorf("кэш директорий: получено %d/%v", cfg.DirCacheSize, cfg.DirCacheTTL)
	}
	if cfg.JanitorInterval != time.Minute || cfg.TempMaxAge != 10*time.Minute {
		t.Errorf("janitor: получено %v/%v", cfg.JanitorInterval, cfg.TempMaxAge)
	}
	if !cfg.AdminAPIEnabled() {
		t.Error("административный API должен быть включён")
	}
	if cfg.JWKSCACert != "/etc/ssl/ca.crt" {
		t.Errorf("JWKSCACert: получено %q", cfg.JWKSCACert)
	}
	if cfg.JWKSClientTimeout != 2*time.Second || cfg.JWKSRefreshInterval != time.Hour {
		t.Errorf("JWKS: получено %v/%v", cfg.JWKSClientTimeout, cfg.JWKSRefreshInterval)
	}
	if cfg.JWTLeeway != 0 {
		t.Errorf("JWTLeeway: ожидалось 0, получено %v", cfg.JWTLeeway)
	}
	if cfg.ServiceID != "ingest-edge-01" || cfg.DephealthGroup != "edge" {
		t.Errorf("dephealth: получено %q/%q", cfg.ServiceID, cfg.DephealthGroup)
	}
	if cfg.DephealthCheckInterval != 30*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 30s, получено %v", cfg.DephealthCheckInterval)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"порт не число", "IG_PORT", "abc"},
		{"порт 0", "IG_PORT", "0"},
		{"порт больше 65535", "IG_PORT", "70000"},
		{"отрицательный лимит загрузки", "IG_MAX_UPLOAD_SIZE", "-1"},
		{"нулевой лимит загрузки", "IG_MAX_UPLOAD_SIZE", "0"},
		{"лимит не число", "IG_MAX_UPLOAD_SIZE", "32MB"},
		{"уровень логирования", "IG_LOG_LEVEL", "verbose"},
		{"формат логов", "IG_LOG_FORMAT", "xml"},
		{"некорректная длительность", "IG_HTTP_READ_TIMEOUT", "30"},
		{"нулевой таймаут", "IG_SHUTDOWN_TIMEOUT", "0s"},
		{"нулевой размер кэша", "IG_DIR_CACHE_SIZE", "0"},
		{"отрицательный интервал janitor", "IG_JANITOR_INTERVAL", "-1m"},
		{"отрицательный leeway", "IG_JWT_LEEWAY", "-5s"},
		{"интервал dephealth", "IG_DEPHEALTH_CHECK_INTERVAL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearAllIGEnvVars(t)
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("%s=%q: ожидалась ошибка", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_TLSPair(t *testing.T) {
	clearAllIGEnvVars(t)
	t.Setenv("IG_TLS_CERT", "/tmp/tls.crt")

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка, если задан только IG_TLS_CERT")
	}
}

func TestLoad_ValidLogLevels(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			clearAllIGEnvVars(t)
			t.Setenv("IG_LOG_LEVEL", tt.input)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if cfg.LogLevel != tt.expected {
				t.Errorf("LogLevel: ожидалось %v, получено %v", tt.expected, cfg.LogLevel)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"json", "json"},
		{"text", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel:  slog.LevelInfo,
				LogFormat: tt.format,
			}
			logger := SetupLogger(cfg)
			if logger == nil {
				t.Fatal("SetupLogger вернул nil")
			}
		})
	}
}
