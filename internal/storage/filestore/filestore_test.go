package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/domain/model"
)

// newTestStore создаёт FileStore во временной директории.
func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := New(filepath.Join(t.TempDir(), "uploaded_files"), Options{})
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	return fs
}

// mustName возвращает проверенное имя файла.
func mustName(t *testing.T, s string) model.FileName {
	t.Helper()
	n, err := model.ParseFileName(s)
	if err != nil {
		t.Fatalf("ParseFileName(%q): %v", s, err)
	}
	return n
}

// TestNew_CreatesRoot проверяет создание корня и служебной директории.
func TestNew_CreatesRoot(t *testing.T) {
	fs := newTestStore(t)

	info, err := os.Stat(filepath.Join(fs.Root(), IncomingDir))
	if err != nil {
		t.Fatalf("служебная директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestResolvePath проверяет раскладку root/device_id/file_name.
func TestResolvePath(t *testing.T) {
	fs := newTestStore(t)

	got, err := fs.ResolvePath("device123", mustName(t, "data.json"))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	want := filepath.Join(fs.Root(), "device123", "data.json")
	if got != want {
		t.Errorf("ожидалось %s, получено %s", want, got)
	}

	// Непроверенное имя не должно пройти даже в обход ParseFileName
	if _, err := fs.ResolvePath("device123", model.FileName("../x")); !errors.Is(err, model.ErrInvalidFileName) {
		t.Errorf("ожидалась ErrInvalidFileName, получено %v", err)
	}
}

// TestResolvePath_InvalidDeviceID проверяет отказ для опасных device_id.
func TestResolvePath_InvalidDeviceID(t *testing.T) {
	fs := newTestStore(t)

	for _, id := range []string{"", ".", "..", "../other", "a/b", ".incoming", ".hidden"} {
		if _, err := fs.ResolvePath(id, mustName(t, "f.txt")); !errors.Is(err, ErrInvalidDeviceID) {
			t.Errorf("device_id %q: ожидалась ErrInvalidDeviceID, получено %v", id, err)
		}
	}
}

// TestEnsureDirectory_Idempotent проверяет повторное создание директории.
func TestEnsureDirectory_Idempotent(t *testing.T) {
	fs := newTestStore(t)

	for i := 0; i < 3; i++ {
		dir, err := fs.EnsureDirectory("device123")
		if err != nil {
			t.Fatalf("вызов %d: неожиданная ошибка: %v", i, err)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("вызов %d: директория не создана: %v", i, err)
		}
	}
}

// TestEnsureDirectory_Concurrent проверяет гонку первого обращения.
func TestEnsureDirectory_Concurrent(t *testing.T) {
	fs := newTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fs.EnsureDirectory("race-device"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("неожиданная ошибка: %v", err)
	}
}

// TestSaveFile проверяет запись, размер и checksum.
func TestSaveFile(t *testing.T) {
	fs := newTestStore(t)

	content := []byte("Hello, World! Тестовые данные для проверки.")
	result, err := fs.SaveFile(context.Background(), "device123", mustName(t, "data.json"), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	if result.Size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), result.Size)
	}

	expectedHash := sha256.Sum256(content)
	if result.Checksum != hex.EncodeToString(expectedHash[:]) {
		t.Errorf("checksum не совпадает: %s", result.Checksum)
	}

	want := filepath.Join(fs.Root(), "device123", "data.json")
	if result.Path != want {
		t.Errorf("путь: ожидалось %s, получено %s", want, result.Path)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ошибка чтения файла: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое файла не совпадает")
	}
}

// TestSaveFile_EmptyFile проверяет сохранение пустого файла.
func TestSaveFile_EmptyFile(t *testing.T) {
	fs := newTestStore(t)

	result, err := fs.SaveFile(context.Background(), "device123", mustName(t, "empty.txt"), bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	if result.Size != 0 {
		t.Errorf("ожидался размер 0, получено %d", result.Size)
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Errorf("пустой файл не создан: %v", err)
	}
}

// TestSaveFile_Overwrite проверяет, что повторная загрузка перезаписывает файл.
func TestSaveFile_Overwrite(t *testing.T) {
	fs := newTestStore(t)
	name := mustName(t, "log.txt")

	if _, err := fs.SaveFile(context.Background(), "device123", name, strings.NewReader("first version, longer")); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.SaveFile(context.Background(), "device123", name, strings.NewReader("second")); err != nil {
		t.Fatal(err)
	}

	files, err := fs.ListFiles("device123")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("ожидался 1 файл, получено %d", len(files))
	}

	data, _ := os.ReadFile(files[0].Path)
	if string(data) != "second" {
		t.Errorf("ожидалось содержимое второй загрузки, получено %q", data)
	}
}

// TestSaveFile_NoTmpLeft проверяет, что временные файлы не остаются.
func TestSaveFile_NoTmpLeft(t *testing.T) {
	fs := newTestStore(t)

	if _, err := fs.SaveFile(context.Background(), "device123", mustName(t, "a.bin"), strings.NewReader("data")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(fs.Root(), IncomingDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("временные файлы не удалены: %d", len(entries))
	}
}

// TestSaveFile_CancelledContext проверяет, что отменённая загрузка
// не трогает существующий файл.
func TestSaveFile_CancelledContext(t *testing.T) {
	fs := newTestStore(t)
	name := mustName(t, "keep.txt")

	if _, err := fs.SaveFile(context.Background(), "device123", name, strings.NewReader("original")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fs.SaveFile(ctx, "device123", name, strings.NewReader("partial")); !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидалась context.Canceled, получено %v", err)
	}

	path, _ := fs.ResolvePath("device123", name)
	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("файл изменён отменённой загрузкой: %q", data)
	}

	entries, _ := os.ReadDir(filepath.Join(fs.Root(), IncomingDir))
	if len(entries) != 0 {
		t.Errorf("временный файл отменённой загрузки не удалён")
	}
}

// failingReader возвращает ошибку после первой порции данных.
type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, io.ErrUnexpectedEOF
	}
	r.sent = true
	return copy(p, "half"), nil
}

// TestSaveFile_ReaderError проверяет, что оборванная запись не создаёт файл.
func TestSaveFile_ReaderError(t *testing.T) {
	fs := newTestStore(t)

	if _, err := fs.SaveFile(context.Background(), "device123", mustName(t, "broken.bin"), &failingReader{}); err == nil {
		t.Fatal("ожидалась ошибка записи")
	}

	path, _ := fs.ResolvePath("device123", mustName(t, "broken.bin"))
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("неполный файл не должен появиться")
	}
}

// TestSaveFile_DirRemovedExternally проверяет восстановление после
// удаления директории устройства, закэшированной как созданная.
func TestSaveFile_DirRemovedExternally(t *testing.T) {
	fs := newTestStore(t)

	dir, err := fs.EnsureDirectory("device123")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if _, err := fs.SaveFile(context.Background(), "device123", mustName(t, "again.txt"), strings.NewReader("x")); err != nil {
		t.Fatalf("ошибка сохранения после удаления директории: %v", err)
	}
}

// TestSaveFile_ConcurrentDistinctNames — 200 параллельных загрузок
// разных файлов одного устройства.
func TestSaveFile_ConcurrentDistinctNames(t *testing.T) {
	fs := newTestStore(t)
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := model.FileName(fmt.Sprintf("file-%03d.txt", i))
			content := fmt.Sprintf("content of %d", i)
			if _, err := fs.SaveFile(context.Background(), "device123", name, strings.NewReader(content)); err != nil {
				t.Errorf("файл %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	files, err := fs.ListFiles("device123")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != n {
		t.Fatalf("ожидалось %d файлов, получено %d", n, len(files))
	}
	for i, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("content of %d", i); string(data) != want {
			t.Errorf("%s: ожидалось %q, получено %q", f.FileName, want, data)
		}
	}
}

// TestSaveFile_ConcurrentSameName проверяет, что при гонке остаётся
// ровно один целый файл одной из версий.
func TestSaveFile_ConcurrentSameName(t *testing.T) {
	fs := newTestStore(t)
	name := mustName(t, "shared.bin")

	versions := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		content := strings.Repeat(string(rune('a'+i)), 64*1024)
		versions[content] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fs.SaveFile(context.Background(), "device123", name, strings.NewReader(content)); err != nil {
				t.Errorf("неожиданная ошибка: %v", err)
			}
		}()
	}
	wg.Wait()

	path, _ := fs.ResolvePath("device123", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !versions[string(data)] {
		t.Error("содержимое файла не совпадает ни с одной загруженной версией")
	}
}

// TestListFiles_UnknownDevice проверяет пустой список для нового устройства.
func TestListFiles_UnknownDevice(t *testing.T) {
	fs := newTestStore(t)

	files, err := fs.ListFiles("nobody")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("ожидался пустой список, получено %d", len(files))
	}
}

// TestCleanupTemp проверяет удаление только старых временных файлов.
func TestCleanupTemp(t *testing.T) {
	fs := newTestStore(t)
	incoming := filepath.Join(fs.Root(), IncomingDir)

	oldTmp := filepath.Join(incoming, "old"+tmpSuffix)
	freshTmp := filepath.Join(incoming, "fresh"+tmpSuffix)
	other := filepath.Join(incoming, "notes.txt")
	for _, p := range []string{oldTmp, freshTmp, other} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldTmp, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(other, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := fs.CleanupTemp(time.Hour)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if removed != 1 {
		t.Errorf("ожидалось удаление 1 файла, удалено %d", removed)
	}
	if _, err := os.Stat(oldTmp); !os.IsNotExist(err) {
		t.Error("старый временный файл должен быть удалён")
	}
	if _, err := os.Stat(freshTmp); err != nil {
		t.Error("свежий временный файл не должен удаляться")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("файлы без суффикса .tmp не должны удаляться")
	}
}

// TestCheckWritable проверяет проверку записи в корень.
func TestCheckWritable(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.CheckWritable(); err != nil {
		t.Errorf("неожиданная ошибка: %v", err)
	}
}
