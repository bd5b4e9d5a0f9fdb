package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
)

// pgFileRepo — реализация FileRepository поверх таблицы file_records.
type pgFileRepo struct {
	db DBTX
}

// NewPostgresFileRepository создаёт репозиторий метаданных в PostgreSQL.
func NewPostgresFileRepository(db DBTX) FileRepository {
	return &pgFileRepo{db: db}
}

const fileRecordColumns = `id, original_name, mime_type, size_bytes, backend_kind, locator, created_at`

func (r *pgFileRepo) Create(ctx context.Context, rec *model.FileRecord) (string, error) {
	prepareRecord(rec)

	query := `
		INSERT INTO file_records (` + fileRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.OriginalName, rec.MimeType, rec.SizeBytes,
		string(rec.BackendKind), rec.Locator, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: id %s", ErrConflict, rec.ID)
		}
		return "", fmt.Errorf("%w: ошибка сохранения записи: %v", model.ErrPersistence, err)
	}
	return rec.ID, nil
}

func (r *pgFileRepo) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	// Не-UUID не может быть ключом таблицы, запрос не нужен
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: файл %s", model.ErrNotFound, id)
	}

	query := `SELECT ` + fileRecordColumns + ` FROM file_records WHERE id = $1`

	rec, err := scanFileRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: файл %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: ошибка получения записи: %v", model.ErrPersistence, err)
	}
	return rec, nil
}

func (r *pgFileRepo) List(ctx context.Context, kind model.BackendKind) ([]*model.FileRecord, error) {
	query := `
		SELECT ` + fileRecordColumns + `
		FROM file_records
		WHERE backend_kind = $1
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка получения списка: %v", model.ErrPersistence, err)
	}
	defer rows.Close()

	result := make([]*model.FileRecord, 0)
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ошибка сканирования записи: %v", model.ErrPersistence, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения списка: %v", model.ErrPersistence, err)
	}
	return result, nil
}

func (r *pgFileRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: файл %s", model.ErrNotFound, id)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM file_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: ошибка удаления записи: %v", model.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: файл %s", model.ErrNotFound, id)
	}
	return nil
}

// scanFileRecord читает одну строку file_records.
func scanFileRecord(row pgx.Row) (*model.FileRecord, error) {
	var (
		rec  model.FileRecord
		kind string
	)
	if err := row.Scan(
		&rec.ID, &rec.OriginalName, &rec.MimeType, &rec.SizeBytes,
		&kind, &rec.Locator, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.BackendKind = model.BackendKind(kind)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// prepareRecord заполняет ID и CreatedAt, если вызывающий их не задал.
func prepareRecord(rec *model.FileRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}
