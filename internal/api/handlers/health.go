// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/config"
)

// Статусы health checks.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// serviceName — имя сервиса в ответах health endpoints.
const serviceName = "ingest-gateway"

// msgStorageNotWritable — ответ клиенту при недоступном хранилище.
// Подробности (путь, errno) пишутся только в лог.
const msgStorageNotWritable = "storage not writable"

// StorageChecker — проверка доступности хранилища на запись.
type StorageChecker interface {
	CheckWritable() error
}

// DependencyReporter — текущее состояние внешних зависимостей.
// Ключ — "имя:хост:порт", значение — true если зависимость доступна.
type DependencyReporter interface {
	Health() map[string]bool
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	storage StorageChecker
	// deps — nil, если мониторинг зависимостей выключен
	deps   DependencyReporter
	logger *slog.Logger
}

// NewHealthHandler создаёт обработчик health endpoints.
// deps может быть nil.
func NewHealthHandler(storage StorageChecker, deps DependencyReporter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		storage: storage,
		deps:    deps,
		logger:  logger.With(slog.String("component", "health_handler")),
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, пока процесс жив. Зависимости не проверяются.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    statusOK,
		"timestamp": formatTime(time.Now()),
		"version":   h.version,
		"service":   serviceName,
	})
}

// HealthReady обрабатывает GET /health/ready.
// Недоступное на запись хранилище — 503. Недоступный JWKS влияет
// только на административный API, поэтому даёт "degraded" и 200.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := statusOK
	httpStatus := http.StatusOK

	storageCheck := map[string]any{"status": statusOK}
	if err := h.storage.CheckWritable(); err != nil {
		h.logger.Error("Хранилище недоступно для записи",
			slog.String("error", err.Error()),
		)
		storageCheck = map[string]any{
			"status":  statusFail,
			"message": msgStorageNotWritable,
		}
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	checks := map[string]any{
		"storage": storageCheck,
	}

	if h.deps != nil {
		depsCheck := dependencyChecks(h.deps.Health())
		checks["dependencies"] = depsCheck
		for _, c := range depsCheck {
			if c["status"] != statusOK && overallStatus == statusOK {
				overallStatus = statusDegraded
			}
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": formatTime(time.Now()),
		"version":   h.version,
		"service":   serviceName,
		"checks":    checks,
	})
}

// dependencyChecks преобразует состояние dephealth в список проверок.
// До первой проверки зависимость отсутствует в карте и не выводится.
func dependencyChecks(health map[string]bool) []map[string]any {
	keys := make([]string, 0, len(health))
	for k := range health {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		name, endpoint, _ := strings.Cut(k, ":")
		status := statusOK
		if !health[k] {
			status = statusFail
		}
		result = append(result, map[string]any{
			"name":     name,
			"endpoint": endpoint,
			"status":   status,
		})
	}
	return result
}

// writeJSON вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// formatTime форматирует время для API-ответов.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
