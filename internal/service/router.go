// Пакет service — бизнес-логика ingest-gateway.
// router.go — маршрутизация отчётов устройств по полю type.
package service

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/api/middleware"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/domain/model"
)

// Ответы на отчёты устройств. Тексты являются частью протокола.
var (
	respStatus = model.ReportResponse{
		Type:    "status_response",
		Status:  "success",
		Message: "Device status updated",
	}
	respFileTransfer = model.ReportResponse{
		Type:    "file_transfer_response",
		Status:  "success",
		Message: "Ready to receive file",
	}
	respUnknown = model.ReportResponse{
		Type:    "error",
		Status:  "failed",
		Message: "Unknown request type",
	}
	respMalformed = model.ReportResponse{
		Type:    "error",
		Status:  "failed",
		Message: "Invalid JSON format",
	}
)

// CommandRouter классифицирует отчёт устройства и формирует ответ.
// Хранилище не затрагивает, состояния не имеет.
type CommandRouter struct {
	logger *slog.Logger
}

// NewCommandRouter создаёт маршрутизатор отчётов.
func NewCommandRouter(logger *slog.Logger) *CommandRouter {
	return &CommandRouter{
		logger: logger.With(slog.String("component", "command_router")),
	}
}

// Route разбирает тело отчёта и возвращает ответ с HTTP-статусом.
// Некорректный JSON — 400, неизвестный type — 200 с ответом об ошибке.
func (cr *CommandRouter) Route(raw []byte) (model.ReportResponse, int) {
	report, err := model.ParseReport(raw)
	if err != nil {
		cr.logger.Debug("Некорректный отчёт устройства",
			slog.String("error", err.Error()),
			slog.Int("size", len(raw)),
		)
		middleware.ReportsTotal.WithLabelValues("malformed").Inc()
		return respMalformed, http.StatusBadRequest
	}

	middleware.ReportsTotal.WithLabelValues(string(report.Type)).Inc()

	switch report.Type {
	case model.ReportStatus:
		return respStatus, http.StatusOK
	case model.ReportFileTransfer:
		return respFileTransfer, http.StatusOK
	default:
		cr.logger.Debug("Неизвестный тип отчёта",
			slog.String("type", report.RawType),
		)
		return respUnknown, http.StatusOK
	}
}
