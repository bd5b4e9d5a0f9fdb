// Пакет filestore — локальный бэкенд: байты файла хранятся отдельным
// файлом в DATA_DIR. Запись потоковая: temp файл → fsync → atomic rename,
// поэтому частично записанный файл никогда не получает итогового имени.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/blob"
)

// tmpSuffix — суффикс временных файлов незавершённой записи.
const tmpSuffix = ".tmp"

// FileStore — управление физическими файлами на диске.
type FileStore struct {
	// dataDir — корневая директория хранения файлов (DATA_DIR)
	dataDir string
}

var _ blob.Backend = (*FileStore)(nil)

// New создаёт новый FileStore. Проверяет и создаёт директорию
// если она не существует.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// Kind возвращает вариант бэкенда.
func (s *FileStore) Kind() model.BackendKind {
	return model.BackendLocal
}

// Store записывает поток на диск под новым уникальным именем.
// Формат имени: {name}_{timestamp}_{uuid}.{ext}
// Локатор — имя файла относительно dataDir.
func (s *FileStore) Store(_ context.Context, r io.Reader, suggestedName, _ string) (*blob.StoreResult, error) {
	storageName := generateStorageName(suggestedName)
	fullPath := filepath.Join(s.dataDir, storageName)
	tmpPath := fullPath + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка создания временного файла: %v", model.ErrStorageIO, err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: ошибка записи данных: %v", model.ErrStorageIO, err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: ошибка fsync: %v", model.ErrStorageIO, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: ошибка закрытия файла: %v", model.ErrStorageIO, err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: ошибка атомарного переименования: %v", model.ErrStorageIO, err)
	}

	return &blob.StoreResult{
		Locator: storageName,
		Size:    size,
	}, nil
}

// Open открывает файл для чтения. Возвращаемый *os.File реализует
// io.ReadSeeker, что позволяет отдавать Range-запросы.
// Вызывающий код обязан закрыть ReadCloser.
func (s *FileStore) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: файл %s отсутствует на диске", model.ErrNotFound, locator)
		}
		return nil, fmt.Errorf("%w: ошибка открытия файла %s: %v", model.ErrStorageIO, locator, err)
	}

	return f, nil
}

// Delete удаляет файл с диска.
// Возвращает model.ErrNotFound, если файла уже нет.
func (s *FileStore) Delete(_ context.Context, locator string) error {
	fullPath, err := s.resolve(locator)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: файл %s отсутствует на диске", model.ErrNotFound, locator)
		}
		return fmt.Errorf("%w: ошибка удаления файла %s: %v", model.ErrStorageIO, locator, err)
	}
	return nil
}

// CleanTemp удаляет временные файлы, оставшиеся от прерванных загрузок
// (например, после аварийного завершения процесса). Возвращает количество удалённых.
func (s *FileStore) CleanTemp() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dataDir, "*"+tmpSuffix))
	if err != nil {
		return 0, fmt.Errorf("ошибка сканирования директории %s: %w", s.dataDir, err)
	}

	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

// FullPath возвращает абсолютный путь к файлу на диске.
func (s *FileStore) FullPath(locator string) string {
	return filepath.Join(s.dataDir, locator)
}

// DataDir возвращает путь к директории данных.
func (s *FileStore) DataDir() string {
	return s.dataDir
}

// resolve проверяет, что локатор — имя файла внутри dataDir.
// Локатор из чужого бэкенда или с обходом пути считается отсутствующим.
func (s *FileStore) resolve(locator string) (string, error) {
	if locator == "" || !filepath.IsLocal(locator) || filepath.Base(locator) != locator {
		return "", fmt.Errorf("%w: некорректный локатор %q", model.ErrNotFound, locator)
	}
	return filepath.Join(s.dataDir, locator), nil
}

// generateStorageName генерирует имя файла для хранения на диске.
// Формат: {name}_{timestamp}_{uuid}.{ext}
// Пример: photo_20260221150405123_a1b2c3d4.jpg
func generateStorageName(originalFilename string) string {
	ext := sanitizeExt(filepath.Ext(originalFilename))
	name := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))

	name = sanitize(name)

	// Ограничиваем длину имени для предотвращения проблем с FS
	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:50])
	}

	ts := time.Now().UTC().Format("20060102150405.000")
	ts = strings.Replace(ts, ".", "", 1)
	uid := uuid.New().String()[:8]

	return fmt.Sprintf("%s_%s_%s%s", name, ts, uid, ext)
}

// sanitizeExt оставляет расширение только из безопасных символов.
func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	clean := sanitize(strings.TrimPrefix(ext, "."))
	if clean == "file" && ext != ".file" {
		return ""
	}
	if len(clean) > 10 {
		clean = clean[:10]
	}
	return "." + clean
}

// sanitize убирает небезопасные символы из строки для использования в имени файла.
// Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
