// report.go — обработчик отчётов устройств.
package handlers

import (
	"io"
	"net/http"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/api/errors"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/service"
)

// maxReportSize — предел тела отчёта. Отчёт — короткий JSON-объект.
const maxReportSize = 1 << 20

// ReportHandler — обработчик POST /report.
type ReportHandler struct {
	router *service.CommandRouter
}

// NewReportHandler создаёт обработчик отчётов.
func NewReportHandler(router *service.CommandRouter) *ReportHandler {
	return &ReportHandler{router: router}
}

// PostReport обрабатывает POST /report.
// Content-Type не проверяется: устройства отправляют тело как есть.
func (h *ReportHandler) PostReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportSize))
	if err != nil {
		// Обрезанное или слишком большое тело разбирается как некорректный JSON
		body = nil
	}

	resp, status := h.router.Route(body)
	errors.WriteReport(w, status, resp)
}
