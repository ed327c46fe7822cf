// upload.go — обработчик загрузки файлов устройств.
package handlers

import (
	stderrors "errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/api/errors"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/domain/model"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/service"
)

// Заголовки протокола загрузки.
const (
	HeaderDeviceID = "Device-ID"
	HeaderPassword = "Password"
	HeaderFileType = "File-Type"
)

// fileField — имя multipart-поля с файлом.
const fileField = "file"

// UploadHandler — обработчик POST /upload.
type UploadHandler struct {
	svc *service.UploadService
	// maxSize — предел тела запроса (IG_MAX_UPLOAD_SIZE)
	maxSize int64
}

// NewUploadHandler создаёт обработчик загрузки.
func NewUploadHandler(svc *service.UploadService, maxSize int64) *UploadHandler {
	return &UploadHandler{svc: svc, maxSize: maxSize}
}

// PostUpload обрабатывает POST /upload.
//
// Порядок проверок: учётные данные (401) до чтения тела, затем
// наличие части "file" (400), имя файла (400), размер (413).
// Часть "file" пишется на диск потоком, без буферизации в памяти.
func (h *UploadHandler) PostUpload(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Header.Get(HeaderDeviceID)

	if uerr := h.svc.Authenticate(deviceID, r.Header.Get(HeaderPassword)); uerr != nil {
		writeUploadError(w, uerr)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)

	mr, err := r.MultipartReader()
	if err != nil {
		writeUploadError(w, h.svc.Reject(deviceID, service.ErrUploadNoFile))
		return
	}

	part, uerr := nextFilePart(mr)
	if uerr != nil {
		writeUploadError(w, h.svc.Reject(deviceID, uerr))
		return
	}
	defer part.Close()

	name, err := model.ParseFileName(rawFileName(part))
	if err != nil {
		writeUploadError(w, h.svc.Reject(deviceID, service.ErrUploadInvalidName))
		return
	}

	if _, uerr := h.svc.Store(r.Context(), service.UploadParams{
		DeviceID: deviceID,
		FileName: name,
		FileType: r.Header.Get(HeaderFileType),
		Content:  part,
	}); uerr != nil {
		writeUploadError(w, uerr)
		return
	}

	errors.WriteText(w, http.StatusOK, "File uploaded successfully: "+name.String())
}

// nextFilePart возвращает первую часть с именем поля "file".
// Остальные части пропускаются.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, *service.UploadError) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			var maxErr *http.MaxBytesError
			if stderrors.As(err, &maxErr) {
				return nil, service.ErrUploadTooLarge
			}
			// io.EOF — частей больше нет, прочее — повреждённый multipart
			return nil, service.ErrUploadNoFile
		}
		if part.FormName() == fileField {
			return part, nil
		}
		// Тело пропущенной части дочитывается при следующем NextPart
		_, _ = io.Copy(io.Discard, part)
		part.Close()
	}
}

// rawFileName возвращает filename из Content-Disposition как есть.
// Part.FileName() применяет filepath.Base и молча превращает
// "../x" в "x", а такое имя должно быть отклонено.
func rawFileName(part *multipart.Part) string {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

// writeUploadError записывает текстовый ответ протокола загрузки.
func writeUploadError(w http.ResponseWriter, uerr *service.UploadError) {
	errors.WriteText(w, uerr.StatusCode, uerr.Message)
}
