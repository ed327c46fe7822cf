// Пакет filestore — раскладка файлов устройств на диске.
//
// Каждому устройству соответствует директория storage_root/<device_id>,
// создаваемая лениво при первой загрузке. Запись файла атомарна для
// внешнего читателя: temp файл → fsync → rename. Временные файлы лежат
// в отдельной директории storage_root/.incoming, чтобы не смешиваться
// с файлами устройств.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/domain/model"
)

// IncomingDir — имя служебной директории временных файлов.
const IncomingDir = ".incoming"

// tmpSuffix — суффикс временных файлов в IncomingDir.
const tmpSuffix = ".tmp"

// ErrInvalidDeviceID — device_id нельзя использовать как имя директории.
var ErrInvalidDeviceID = errors.New("недопустимый device_id")

// Метрики кэша директорий.
var (
	dirCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ig_dir_cache_hits_total",
		Help: "Количество попаданий в кэш созданных директорий устройств",
	})
	dirCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ig_dir_cache_misses_total",
		Help: "Количество промахов кэша созданных директорий устройств",
	})
)

// FileStore — единственный владелец дерева директорий storage_root.
type FileStore struct {
	// root — корень хранилища (IG_STORAGE_ROOT)
	root string
	// incoming — директория временных файлов
	incoming string
	// ensured — директории устройств, уже созданные этим процессом
	ensured *expirable.LRU[string, struct{}]
}

// SaveResult — результат сохранения файла.
type SaveResult struct {
	// Path — итоговый путь файла на диске
	Path string
	// Size — количество записанных байт
	Size int64
	// Checksum — SHA-256 содержимого
	Checksum string
}

// Options — параметры кэша директорий.
type Options struct {
	// DirCacheSize — максимальное число запомненных директорий
	DirCacheSize int
	// DirCacheTTL — время, после которого директория проверяется заново
	DirCacheTTL time.Duration
}

// New создаёт FileStore и при необходимости создаёт корень хранилища.
func New(root string, opts Options) (*FileStore, error) {
	if opts.DirCacheSize <= 0 {
		opts.DirCacheSize = 1024
	}
	if opts.DirCacheTTL <= 0 {
		opts.DirCacheTTL = 5 * time.Minute
	}

	incoming := filepath.Join(root, IncomingDir)
	if err := os.MkdirAll(incoming, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", root, err)
	}

	return &FileStore{
		root:     root,
		incoming: incoming,
		ensured:  expirable.NewLRU[string, struct{}](opts.DirCacheSize, nil, opts.DirCacheTTL),
	}, nil
}

// Root возвращает корень хранилища.
func (fs *FileStore) Root() string {
	return fs.root
}

// validateDeviceID проверяет, что device_id — один сегмент пути.
// Имена, начинающиеся с точки, зарезервированы под служебные директории.
func validateDeviceID(deviceID string) error {
	if !model.IsPathSegment(deviceID) || strings.HasPrefix(deviceID, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceID, deviceID)
	}
	return nil
}

// DeviceDir возвращает директорию устройства без её создания.
func (fs *FileStore) DeviceDir(deviceID string) (string, error) {
	if err := validateDeviceID(deviceID); err != nil {
		return "", err
	}
	return filepath.Join(fs.root, deviceID), nil
}

// ResolvePath возвращает итоговый путь файла: root/device_id/file_name.
func (fs *FileStore) ResolvePath(deviceID string, name model.FileName) (string, error) {
	dir, err := fs.DeviceDir(deviceID)
	if err != nil {
		return "", err
	}
	if !model.IsPathSegment(name.String()) {
		return "", model.ErrInvalidFileName
	}
	return filepath.Join(dir, name.String()), nil
}

// EnsureDirectory создаёт директорию устройства, если её нет.
// Идемпотентна и безопасна при конкурентном первом обращении:
// MkdirAll не считает существующую директорию ошибкой.
func (fs *FileStore) EnsureDirectory(deviceID string) (string, error) {
	dir, err := fs.DeviceDir(deviceID)
	if err != nil {
		return "", err
	}

	if _, ok := fs.ensured.Get(deviceID); ok {
		dirCacheHitsTotal.Inc()
		return dir, nil
	}
	dirCacheMissesTotal.Inc()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("ошибка создания директории устройства %s: %w", dir, err)
	}
	fs.ensured.Add(deviceID, struct{}{})
	return dir, nil
}

// SaveFile записывает содержимое reader в root/device_id/name.
//
// Паттерн: temp файл в .incoming → запись + SHA-256 → fsync → rename.
// Каждый вызов пишет в собственный temp файл, поэтому конкурентные
// загрузки одного имени не перемешиваются: побеждает последний rename.
// Если ctx отменён до rename, temp файл удаляется, а существующий
// файл остаётся нетронутым.
func (fs *FileStore) SaveFile(ctx context.Context, deviceID string, name model.FileName, reader io.Reader) (*SaveResult, error) {
	finalPath, err := fs.ResolvePath(deviceID, name)
	if err != nil {
		return nil, err
	}
	if _, err := fs.EnsureDirectory(deviceID); err != nil {
		return nil, err
	}

	tmpPath := filepath.Join(fs.incoming, uuid.New().String()+tmpSuffix)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(reader, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := ctx.Err(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("загрузка прервана: %w", err)
	}

	if err := fs.rename(deviceID, tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	return &SaveResult{
		Path:     finalPath,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// rename атомарно переносит temp файл на место итогового.
// Если директорию устройства удалили снаружи, пока она была в кэше,
// директория создаётся заново и rename повторяется один раз.
func (fs *FileStore) rename(deviceID, tmpPath, finalPath string) error {
	err := os.Rename(tmpPath, finalPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	fs.ensured.Remove(deviceID)
	if _, mkErr := fs.EnsureDirectory(deviceID); mkErr != nil {
		return mkErr
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// ListFiles возвращает сохранённые файлы устройства, отсортированные по имени.
// Для устройства без директории возвращается пустой список.
func (fs *FileStore) ListFiles(deviceID string) ([]model.StoredFile, error) {
	dir, err := fs.DeviceDir(deviceID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.StoredFile{}, nil
		}
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", dir, err)
	}

	files := make([]model.StoredFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Файл мог быть перезаписан между ReadDir и Info
			continue
		}
		files = append(files, model.StoredFile{
			DeviceID:   deviceID,
			FileName:   e.Name(),
			Path:       filepath.Join(dir, e.Name()),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].FileName < files[j].FileName })
	return files, nil
}

// CleanupTemp удаляет временные файлы старше olderThan, оставшиеся
// после аварийно прерванных записей. Возвращает число удалённых файлов.
func (fs *FileStore) CleanupTemp(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(fs.incoming)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения %s: %w", fs.incoming, err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(fs.incoming, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("ошибка удаления %s: %w", path, err))
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

// CheckWritable проверяет, что в корень хранилища можно писать.
func (fs *FileStore) CheckWritable() error {
	probe := filepath.Join(fs.incoming, ".health_check")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("корень хранилища недоступен для записи: %w", err)
	}
	_ = os.Remove(probe)
	return nil
}
