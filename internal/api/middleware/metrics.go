// metrics.go — Prometheus метрики ingest-gateway.
// HTTP: ig_http_requests_total, ig_http_request_duration_seconds.
// Бизнес-метрики протокола устройств экспортируются и обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ig_http_requests_total",
			Help: "Общее количество HTTP-запросов к ingest-gateway",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ig_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к ingest-gateway в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// ReportsTotal — отчёты устройств по типу (status, file_transfer, unknown, malformed).
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ig_reports_total",
			Help: "Количество отчётов устройств по типу",
		},
		[]string{"type"},
	)

	// UploadsTotal — загрузки файлов по результату.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ig_uploads_total",
			Help: "Количество загрузок файлов по результату",
		},
		[]string{"result"},
	)

	// UploadBytesTotal — объём успешно сохранённых данных.
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ig_upload_bytes_total",
			Help: "Объём успешно сохранённых файлов в байтах",
		},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// device_id в пути заменяется на шаблон
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath приводит путь к шаблону маршрута для лейблов метрик.
// /api/v1/devices/sensor-01/files → /api/v1/devices/{device_id}/files
// Неизвестные пути сводятся к "other", чтобы сканеры не раздували кардинальность.
func normalizePath(path string) string {
	switch path {
	case "/report", "/upload", "/hi",
		"/health/live", "/health/ready", "/metrics":
		return path
	}

	const devicesPrefix = "/api/v1/devices/"
	if rest, ok := strings.CutPrefix(path, devicesPrefix); ok {
		if id, suffix, found := strings.Cut(rest, "/"); found && id != "" && suffix == "files" {
			return "/api/v1/devices/{device_id}/files"
		}
	}

	return "other"
}
