// files.go — административный API: список файлов устройства.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/ingest-gateway/internal/api/errors"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/domain/model"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/storage/filestore"
)

// FileLister — источник списка файлов устройства.
type FileLister interface {
	ListFiles(deviceID string) ([]model.StoredFile, error)
}

// FilesHandler — обработчик GET /api/v1/devices/{device_id}/files.
type FilesHandler struct {
	store  FileLister
	logger *slog.Logger
}

// NewFilesHandler создаёт обработчик административного API.
func NewFilesHandler(store FileLister, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		store:  store,
		logger: logger.With(slog.String("component", "files_handler")),
	}
}

// deviceFilesResponse — ответ со списком файлов устройства.
type deviceFilesResponse struct {
	DeviceID string             `json:"device_id"`
	Items    []model.StoredFile `json:"items"`
	Total    int                `json:"total"`
}

// ListDeviceFiles обрабатывает GET /api/v1/devices/{device_id}/files.
// Неизвестное устройство — пустой список, а не 404: устройство
// могло ещё ничего не загрузить.
func (h *FilesHandler) ListDeviceFiles(w http.ResponseWriter, _ *http.Request, deviceID string) {
	files, err := h.store.ListFiles(deviceID)
	if err != nil {
		if errors.Is(err, filestore.ErrInvalidDeviceID) {
			apierrors.ValidationError(w, "Некорректный device_id")
			return
		}
		h.logger.Error("Ошибка получения списка файлов",
			slog.String("device_id", deviceID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка получения списка файлов")
		return
	}

	writeJSON(w, http.StatusOK, deviceFilesResponse{
		DeviceID: deviceID,
		Items:    files,
		Total:    len(files),
	})
}
