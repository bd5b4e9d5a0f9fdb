// Пакет repository — хранилища метаданных файлов.
// PostgreSQL — чистый SQL через pgx, без ORM; SQLite — через gorm.
// Реализация в памяти живёт в пакете storage/index.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
)

// ErrConflict — запись с таким ID уже существует.
// Частный случай model.ErrPersistence: для клиента это отказ хранилища.
var ErrConflict = fmt.Errorf("%w: запись уже существует", model.ErrPersistence)

// FileRepository — хранилище FileRecord. Единственный источник истины
// о том, какие файлы существуют.
//
// Ошибки: model.ErrNotFound — записи нет; model.ErrPersistence —
// хранилище недоступно.
type FileRepository interface {
	// Create сохраняет запись. Пустой ID заменяется новым UUID v4,
	// нулевой CreatedAt — текущим временем. Возвращает итоговый ID.
	Create(ctx context.Context, rec *model.FileRecord) (string, error)
	// FindByID возвращает запись по ID.
	FindByID(ctx context.Context, id string) (*model.FileRecord, error)
	// List возвращает записи указанного бэкенда, новые первыми.
	List(ctx context.Context, kind model.BackendKind) ([]*model.FileRecord, error)
	// DeleteByID удаляет запись. Повторное удаление — model.ErrNotFound.
	DeleteByID(ctx context.Context, id string) error
}

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
