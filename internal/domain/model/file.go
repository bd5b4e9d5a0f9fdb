// Пакет model — доменные модели File Manager.
// FileRecord — единственная запись метаданных загруженного файла,
// общая для всех бэкендов хранения байтов.
package model

import (
	"fmt"
	"time"
)

// BackendKind — вариант бэкенда, владеющего байтами файла.
type BackendKind string

const (
	// BackendLocal — байты лежат файлом в локальной файловой системе
	BackendLocal BackendKind = "local"
	// BackendChunked — байты разбиты на чанки в объектном хранилище
	BackendChunked BackendKind = "chunked"
)

// ParseBackendKind преобразует строку конфигурации в BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	switch BackendKind(s) {
	case BackendLocal, BackendChunked:
		return BackendKind(s), nil
	default:
		return "", fmt.Errorf("недопустимый тип бэкенда %q, допустимые: local, chunked", s)
	}
}

// FileRecord — метаданные файла. Создаётся только успешной загрузкой
// (сначала байты, потом запись) и после создания не изменяется.
type FileRecord struct {
	// ID — уникальный идентификатор (UUID v4), первичный ключ
	ID string `json:"id"`

	// OriginalName — имя файла, переданное клиентом
	OriginalName string `json:"originalname"`

	// MimeType — заявленный Content-Type
	MimeType string `json:"mimetype"`

	// SizeBytes — фактически записанный бэкендом размер, не заявленный клиентом
	SizeBytes int64 `json:"size"`

	// BackendKind — бэкенд, которому принадлежат байты
	BackendKind BackendKind `json:"storageType"`

	// Locator — ссылка на байты внутри бэкенда: относительный путь
	// для local, идентификатор блоба для chunked. Не отдаётся в API.
	Locator string `json:"-"`

	// CreatedAt — время загрузки (UTC)
	CreatedAt time.Time `json:"uploadDate"`
}

// StoredName возвращает имя, под которым байты лежат в бэкенде.
// Для local это имя файла на диске, для chunked — исходное имя.
func (r *FileRecord) StoredName() string {
	if r.BackendKind == BackendLocal {
		return r.Locator
	}
	return r.OriginalName
}
