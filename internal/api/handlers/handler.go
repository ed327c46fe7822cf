// handler.go — APIHandler реализует server.ServerInterface,
// делегируя вызовы в отдельные handler'ы по доменам.
package handlers

import (
	"net/http"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/server"
)

// Проверка соответствия интерфейсу на этапе компиляции.
var _ server.ServerInterface = (*APIHandler)(nil)

// APIHandler — единая реализация ServerInterface, собирающая
// все доменные handlers в один объект.
type APIHandler struct {
	report  *ReportHandler
	upload  *UploadHandler
	hello   *HelloHandler
	files   *FilesHandler
	health  *HealthHandler
	metrics *server.MetricsHandler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(
	report *ReportHandler,
	upload *UploadHandler,
	hello *HelloHandler,
	files *FilesHandler,
	health *HealthHandler,
	metrics *server.MetricsHandler,
) *APIHandler {
	return &APIHandler{
		report:  report,
		upload:  upload,
		hello:   hello,
		files:   files,
		health:  health,
		metrics: metrics,
	}
}

// --- Протокол устройств ---

func (h *APIHandler) PostReport(w http.ResponseWriter, r *http.Request) {
	h.report.PostReport(w, r)
}

func (h *APIHandler) PostUpload(w http.ResponseWriter, r *http.Request) {
	h.upload.PostUpload(w, r)
}

func (h *APIHandler) GetHello(w http.ResponseWriter, r *http.Request) {
	h.hello.GetHello(w, r)
}

// --- Административный API ---

func (h *APIHandler) ListDeviceFiles(w http.ResponseWriter, r *http.Request, deviceID string) {
	h.files.ListDeviceFiles(w, r, deviceID)
}

// --- Health & Metrics ---

func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
