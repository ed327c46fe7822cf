// Пакет model — доменные модели ingest-gateway.
// Устройства, отчёты устройств и сохранённые файлы.
package model

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidFileName — имя файла не является одним безопасным сегментом пути.
var ErrInvalidFileName = errors.New("недопустимое имя файла")

// DeviceCredential — учётные данные одного устройства.
// Набор учётных данных неизменен после загрузки при старте.
type DeviceCredential struct {
	// DeviceID — идентификатор устройства (непустой)
	DeviceID string `yaml:"device_id"`
	// Password — общий секрет устройства
	Password string `yaml:"password"`
}

// FileName — проверенное имя загружаемого файла.
// Всегда ровно один сегмент пути: непустой, не "." и не "..",
// без разделителей и NUL.
type FileName string

// ParseFileName проверяет имя файла, пришедшее от клиента.
// Возвращает ErrInvalidFileName для пустых имён, "." и "..",
// а также имён с '/', '\' или NUL.
func ParseFileName(name string) (FileName, error) {
	if !IsPathSegment(name) {
		return "", ErrInvalidFileName
	}
	return FileName(name), nil
}

// String возвращает имя файла как строку.
func (f FileName) String() string {
	return string(f)
}

// IsPathSegment проверяет, что s можно безопасно использовать
// как один компонент пути внутри корня хранилища.
func IsPathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// StoredFile — сохранённый на диске артефакт устройства.
type StoredFile struct {
	// DeviceID — владелец файла
	DeviceID string `json:"-"`
	// FileName — имя файла внутри директории устройства
	FileName string `json:"file_name"`
	// Path — полный путь: storage_root/device_id/file_name
	Path string `json:"-"`
	// Size — размер в байтах
	Size int64 `json:"size"`
	// ModifiedAt — время последней записи (UTC)
	ModifiedAt time.Time `json:"modified_at"`
}
