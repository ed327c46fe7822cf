// upload.go — сервис приёма файлов от устройств.
//
// Поток запроса /upload:
//  1. Authenticate — до чтения тела
//  2. разбор multipart выполняет HTTP-слой
//  3. Store — потоковая запись в FileStore (temp → fsync → rename)
//
// Строки аудита ("<device_id> uploaded file: <name>" и т.д.) являются
// частью эксплуатационного контракта и пишутся на английском.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/ingest-gateway/internal/api/errors"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/api/middleware"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/auth"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/domain/model"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/storage/filestore"
)

// Результаты загрузки (лейбл result метрики ig_uploads_total).
const (
	ResultSuccess      = "success"
	ResultUnauthorized = "unauthorized"
	ResultNoFile       = "no_file"
	ResultInvalidName  = "invalid_name"
	ResultTooLarge     = "too_large"
	ResultAborted      = "aborted"
	ResultStorageError = "storage_error"
)

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// DeviceID — аутентифицированное устройство
	DeviceID string
	// FileName — проверенное имя файла из multipart
	FileName model.FileName
	// FileType — заголовок File-Type, только для логов
	FileType string
	// Content — поток данных файла (может быть пустым)
	Content io.Reader
}

// UploadError — ошибка загрузки с HTTP-кодом и текстом ответа.
type UploadError struct {
	StatusCode int
	// Code — значение лейбла result в метриках
	Code    string
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Типовые ошибки протокола загрузки.
var (
	ErrUploadUnauthorized = &UploadError{http.StatusUnauthorized, ResultUnauthorized, apierrors.MsgUnauthorized}
	ErrUploadNoFile       = &UploadError{http.StatusBadRequest, ResultNoFile, apierrors.MsgNoFileUploaded}
	ErrUploadInvalidName  = &UploadError{http.StatusBadRequest, ResultInvalidName, apierrors.MsgInvalidName}
	ErrUploadTooLarge     = &UploadError{http.StatusRequestEntityTooLarge, ResultTooLarge, apierrors.MsgFileTooLarge}
	ErrUploadAborted      = &UploadError{http.StatusBadRequest, ResultAborted, apierrors.MsgNoFileUploaded}
	ErrUploadStorage      = &UploadError{http.StatusInternalServerError, ResultStorageError, apierrors.MsgInternalError}
)

// UploadService — сервис приёма файлов.
type UploadService struct {
	auth   auth.DeviceAuthenticator
	store  *filestore.FileStore
	logger *slog.Logger
}

// NewUploadService создаёт сервис приёма файлов.
func NewUploadService(
	authenticator auth.DeviceAuthenticator,
	store *filestore.FileStore,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		auth:   authenticator,
		store:  store,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Authenticate проверяет учётные данные устройства.
// Ответ не сообщает, какое из полей неверно.
func (s *UploadService) Authenticate(deviceID, password string) *UploadError {
	if s.auth.Verify(deviceID, password) {
		return nil
	}
	s.logger.Warn("Unauthorized device: "+deviceID,
		slog.String("device_id", deviceID),
	)
	middleware.UploadsTotal.WithLabelValues(ResultUnauthorized).Inc()
	return ErrUploadUnauthorized
}

// Reject фиксирует отказ, обнаруженный при разборе запроса
// (нет файла, недопустимое имя, превышен лимит), и возвращает его же.
func (s *UploadService) Reject(deviceID string, uerr *UploadError) *UploadError {
	s.logger.Warn(deviceID+" failed to upload file: "+uerr.Message,
		slog.String("device_id", deviceID),
		slog.String("result", uerr.Code),
	)
	middleware.UploadsTotal.WithLabelValues(uerr.Code).Inc()
	return uerr
}

// Store сохраняет содержимое файла в директорию устройства.
//
// Ошибки чтения тела запроса (обрыв соединения, превышение лимита)
// отличаются от ошибок диска: первые — 400/413, вторые — 500
// с подробностями только в логе.
func (s *UploadService) Store(ctx context.Context, params UploadParams) (*filestore.SaveResult, *UploadError) {
	body := &bodyReader{r: params.Content}

	result, err := s.store.SaveFile(ctx, params.DeviceID, params.FileName, body)
	if err != nil {
		return nil, s.Reject(params.DeviceID, s.classify(ctx, params, body, err))
	}

	middleware.UploadsTotal.WithLabelValues(ResultSuccess).Inc()
	middleware.UploadBytesTotal.Add(float64(result.Size))

	s.logger.Info(params.DeviceID+" uploaded file: "+params.FileName.String(),
		slog.String("device_id", params.DeviceID),
		slog.String("file_name", params.FileName.String()),
		slog.String("file_type", params.FileType),
		slog.Int64("size", result.Size),
		slog.String("checksum", result.Checksum),
	)

	return result, nil
}

// classify сопоставляет ошибку сохранения с ответом протокола.
func (s *UploadService) classify(ctx context.Context, params UploadParams, body *bodyReader, err error) *UploadError {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(body.err, &maxErr):
		return ErrUploadTooLarge
	case body.err != nil, ctx.Err() != nil:
		s.logger.Debug("Загрузка прервана клиентом",
			slog.String("device_id", params.DeviceID),
			slog.String("file_name", params.FileName.String()),
			slog.Any("error", err),
		)
		return ErrUploadAborted
	case errors.Is(err, model.ErrInvalidFileName):
		return ErrUploadInvalidName
	default:
		s.logger.Error("Ошибка сохранения файла",
			slog.String("device_id", params.DeviceID),
			slog.String("file_name", params.FileName.String()),
			slog.String("error", err.Error()),
		)
		return ErrUploadStorage
	}
}

// bodyReader запоминает ошибку чтения тела запроса,
// чтобы отличить её от ошибки записи на диск.
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		b.err = err
	}
	return n, err
}
