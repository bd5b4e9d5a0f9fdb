// Пакет wal — файловый журнал операций File Manager.
// Связывает две несвязанные записи (байты в бэкенде и FileRecord
// в хранилище метаданных): при рестарте незавершённые операции
// доводятся до конца или откатываются, сирот не остаётся.
// Каждая транзакция — отдельный файл {tx_id}.wal.json в WAL_DIR.
package wal

import (
	"time"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
)

// OperationType — тип операции, записываемой в WAL.
type OperationType string

const (
	// OpUpload — загрузка: байты в бэкенд, затем запись метаданных
	OpUpload OperationType = "upload"
	// OpDelete — удаление: байты из бэкенда, затем запись метаданных
	OpDelete OperationType = "delete"
)

// TransactionStatus — статус транзакции WAL.
type TransactionStatus string

const (
	// StatusPending — транзакция начата, операция в процессе
	StatusPending TransactionStatus = "pending"
	// StatusCommitted — транзакция успешно завершена
	StatusCommitted TransactionStatus = "committed"
	// StatusRolledBack — транзакция отменена, следы операции убраны
	StatusRolledBack TransactionStatus = "rolled_back"
)

// Entry — запись WAL. Хранится как JSON-файл {tx_id}.wal.json.
type Entry struct {
	// TransactionID — уникальный идентификатор транзакции (UUID v4)
	TransactionID string `json:"transaction_id"`

	// Operation — тип операции
	Operation OperationType `json:"operation"`

	// Status — текущий статус транзакции
	Status TransactionStatus `json:"status"`

	// FileID — ID записи метаданных. Для upload известен заранее.
	FileID string `json:"file_id"`

	// BackendKind — бэкенд, которому принадлежат байты
	BackendKind model.BackendKind `json:"backend_kind"`

	// Locator — ссылка на байты в бэкенде. Для upload пуст,
	// пока бэкенд не вернул результат записи.
	Locator string `json:"locator,omitempty"`

	// StartedAt — время начала транзакции (UTC)
	StartedAt time.Time `json:"started_at"`

	// CompletedAt — время завершения транзакции (UTC).
	// nil для pending транзакций.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// walFileName возвращает имя файла WAL для данной транзакции.
func walFileName(txID string) string {
	return txID + ".wal.json"
}
