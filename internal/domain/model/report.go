// report.go — отчёты устройств, присылаемые на /report.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedReport — тело отчёта не является JSON-объектом
// с корректным полем type.
var ErrMalformedReport = errors.New("некорректный JSON отчёта")

// ReportType — тип отчёта устройства.
type ReportType string

const (
	// ReportStatus — устройство сообщает свой статус
	ReportStatus ReportType = "status"
	// ReportFileTransfer — устройство собирается передать файл
	ReportFileTransfer ReportType = "file_transfer"
	// ReportUnknown — любое другое значение type (в том числе отсутствующее)
	ReportUnknown ReportType = "unknown"
)

// Report — разобранный отчёт устройства.
type Report struct {
	// Type — тип, определённый только по полю "type"
	Type ReportType
	// RawType — исходное значение поля "type" ("" если поля нет)
	RawType string
	// Raw — исходное тело запроса
	Raw []byte
}

// reportEnvelope — минимальная схема тела отчёта.
// RawMessage позволяет отличить отсутствующее поле от null.
type reportEnvelope struct {
	Type json.RawMessage `json:"type"`
}

// ParseReport разбирает тело отчёта.
// Неизвестное значение type не является ошибкой и даёт ReportUnknown.
// Ошибка возвращается, если тело не JSON-объект или присутствующее
// поле type не строка (null тоже).
func ParseReport(raw []byte) (Report, error) {
	var env reportEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}

	// json.Unmarshal принимает "null" в структуру без ошибки
	if !isJSONObject(raw) {
		return Report{}, fmt.Errorf("%w: ожидается JSON-объект", ErrMalformedReport)
	}

	rawType := ""
	if env.Type != nil {
		// null в string разбирается без ошибки, поэтому проверяем кавычку
		if err := json.Unmarshal(env.Type, &rawType); err != nil || env.Type[0] != '"' {
			return Report{}, fmt.Errorf("%w: поле type не строка", ErrMalformedReport)
		}
	}

	return Report{
		Type:    classify(rawType),
		RawType: rawType,
		Raw:     raw,
	}, nil
}

// classify сопоставляет строковое значение type с ReportType.
func classify(t string) ReportType {
	switch ReportType(t) {
	case ReportStatus:
		return ReportStatus
	case ReportFileTransfer:
		return ReportFileTransfer
	default:
		return ReportUnknown
	}
}

// isJSONObject проверяет, что первый значимый символ — '{'.
func isJSONObject(raw []byte) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// ReportResponse — ответ на отчёт устройства.
type ReportResponse struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
