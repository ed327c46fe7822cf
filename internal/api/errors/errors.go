// Пакет errors — единые форматы ответов ingest-gateway.
//
// Административный API отвечает ошибками в формате
// {"error": {"code": "...", "message": "..."}} через WriteError.
// Протокол устройств сохраняет исторический формат: /report отвечает
// JSON-объектом {"type","status","message"}, /upload — простым текстом.
package errors //nolint:revive // пакет errors конфликтует со stdlib, импортируется под алиасом

import (
	"encoding/json"
	"net/http"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/domain/model"
)

// Коды ошибок административного API.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Тексты ответов /upload.
const (
	MsgUnauthorized   = "Unauthorized"
	MsgNoFileUploaded = "No file uploaded"
	MsgInvalidName    = "Invalid file name"
	MsgFileTooLarge   = "File too large"
	MsgInternalError  = "Internal server error"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки административного API.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// WriteReport записывает ответ на отчёт устройства.
// Тело без завершающего перевода строки.
func WriteReport(w http.ResponseWriter, statusCode int, resp model.ReportResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, CodeInternalError, MsgInternalError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// WriteText записывает текстовый ответ протокола загрузки.
func WriteText(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(message))
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
