// Пакет blob — общий интерфейс бэкендов хранения байтов.
// Реализации: filestore (локальная ФС), chunkstore (чанки в PostgreSQL),
// gridfs (чанки в MongoDB GridFS).
package blob

import (
	"context"
	"io"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
)

// StoreResult — результат записи блоба.
type StoreResult struct {
	// Locator — ссылка на байты внутри бэкенда
	Locator string
	// Size — фактическое количество записанных байт
	Size int64
}

// Backend — набор операций бэкенда: store, retrieve, delete.
//
// Store потребляет поток инкрементально и не держит файл целиком в памяти.
// Open возвращает model.ErrNotFound, если байты отсутствуют.
// Delete возвращает model.ErrNotFound, если байты уже удалены.
// Ошибки ввода-вывода оборачивают model.ErrStorageIO.
type Backend interface {
	Kind() model.BackendKind
	Store(ctx context.Context, r io.Reader, suggestedName, contentType string) (*StoreResult, error)
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
}
