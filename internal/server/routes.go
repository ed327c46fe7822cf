// routes.go — таблица маршрутов ingest-gateway.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/api/middleware"
)

// ServerInterface — все endpoints ingest-gateway.
type ServerInterface interface {
	// PostReport — POST /report, отчёт устройства
	PostReport(w http.ResponseWriter, r *http.Request)
	// PostUpload — POST /upload, загрузка файла устройства
	PostUpload(w http.ResponseWriter, r *http.Request)
	// GetHello — GET /hi, приветствие с порядковым номером
	GetHello(w http.ResponseWriter, r *http.Request)
	// HealthLive — GET /health/live
	HealthLive(w http.ResponseWriter, r *http.Request)
	// HealthReady — GET /health/ready
	HealthReady(w http.ResponseWriter, r *http.Request)
	// GetMetrics — GET /metrics
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// ListDeviceFiles — GET /api/v1/devices/{device_id}/files
	ListDeviceFiles(w http.ResponseWriter, r *http.Request, deviceID string)
}

// JWTAuthProvider — источник JWT middleware административного API.
type JWTAuthProvider interface {
	Middleware() func(http.Handler) http.Handler
}

// HandlerFromMux монтирует endpoints на router.
// Административный API монтируется только при jwtAuth != nil:
// без проверки токенов список файлов устройств не публикуется.
func HandlerFromMux(si ServerInterface, r chi.Router, jwtAuth JWTAuthProvider) {
	// Протокол устройств
	r.Post("/report", si.PostReport)
	r.Post("/upload", si.PostUpload)
	r.Get("/hi", si.GetHello)

	// Служебные endpoints
	r.Get("/health/live", si.HealthLive)
	r.Get("/health/ready", si.HealthReady)
	r.Get("/metrics", si.GetMetrics)

	if jwtAuth == nil {
		return
	}

	r.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware())
		r.Use(middleware.RequireScope(middleware.ScopeFilesRead))
		r.Get("/api/v1/devices/{device_id}/files", func(w http.ResponseWriter, req *http.Request) {
			si.ListDeviceFiles(w, req, chi.URLParam(req, "device_id"))
		})
	})
}
