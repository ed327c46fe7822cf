// Пакет auth — проверка учётных данных устройств.
//
// Хранилище учётных данных загружается один раз при старте и далее
// только читается, поэтому Verify безопасен для конкурентного вызова
// без блокировок.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/domain/model"
)

// DeviceAuthenticator проверяет заявленную идентичность устройства.
// Неизвестное устройство — это false, а не ошибка.
type DeviceAuthenticator interface {
	Verify(deviceID, password string) bool
}

// Учётные данные тестового устройства, используются если файл не задан.
const (
	DefaultDeviceID = "device123"
	DefaultPassword = "password123"
)

// StaticStore — неизменяемый allow-list устройств.
type StaticStore struct {
	passwords map[string][]byte
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ DeviceAuthenticator = (*StaticStore)(nil)

// NewStatic создаёт хранилище из списка учётных данных.
// Возвращает ошибку для пустых, повторяющихся и непригодных
// для имени директории device_id.
func NewStatic(creds ...model.DeviceCredential) (*StaticStore, error) {
	passwords := make(map[string][]byte, len(creds))
	for i, c := range creds {
		if c.DeviceID == "" {
			return nil, fmt.Errorf("запись %d: пустой device_id", i)
		}
		// device_id становится именем директории в хранилище
		if !model.IsPathSegment(c.DeviceID) || strings.HasPrefix(c.DeviceID, ".") {
			return nil, fmt.Errorf("запись %d: device_id %q нельзя использовать как имя директории", i, c.DeviceID)
		}
		if _, dup := passwords[c.DeviceID]; dup {
			return nil, fmt.Errorf("запись %d: устройство %q указано повторно", i, c.DeviceID)
		}
		passwords[c.DeviceID] = []byte(c.Password)
	}
	return &StaticStore{passwords: passwords}, nil
}

// Default возвращает хранилище с одним тестовым устройством.
func Default() *StaticStore {
	return &StaticStore{
		passwords: map[string][]byte{DefaultDeviceID: []byte(DefaultPassword)},
	}
}

// Verify сравнивает пароль за постоянное время.
func (s *StaticStore) Verify(deviceID, password string) bool {
	if deviceID == "" {
		return false
	}
	expected, ok := s.passwords[deviceID]
	if !ok {
		// Сравниваем с самим собой, чтобы время ответа не зависело от наличия устройства
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return false
	}
	return subtle.ConstantTimeCompare(expected, []byte(password)) == 1
}

// Len возвращает количество зарегистрированных устройств.
func (s *StaticStore) Len() int {
	return len(s.passwords)
}

// credentialsFile — формат YAML-файла учётных данных.
//
//	devices:
//	  - device_id: device123
//	    password: password123
type credentialsFile struct {
	Devices []model.DeviceCredential `yaml:"devices"`
}

// LoadFile читает учётные данные устройств из YAML-файла.
func LoadFile(path string) (*StaticStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение файла учётных данных %s: %w", path, err)
	}

	var f credentialsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("разбор файла учётных данных %s: %w", path, err)
	}
	if len(f.Devices) == 0 {
		return nil, errors.New("файл учётных данных не содержит устройств")
	}

	store, err := NewStatic(f.Devices...)
	if err != nil {
		return nil, fmt.Errorf("файл учётных данных %s: %w", path, err)
	}
	return store, nil
}
