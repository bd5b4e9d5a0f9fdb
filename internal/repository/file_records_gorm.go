package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
)

// fileRecordRow — строка file_records в SQLite.
type fileRecordRow struct {
	ID           string `gorm:"primaryKey"`
	OriginalName string
	MimeType     string
	SizeBytes    int64
	BackendKind  string
	Locator      string
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
}

func (fileRecordRow) TableName() string { return "file_records" }

func (row *fileRecordRow) toModel() *model.FileRecord {
	return &model.FileRecord{
		ID:           row.ID,
		OriginalName: row.OriginalName,
		MimeType:     row.MimeType,
		SizeBytes:    row.SizeBytes,
		BackendKind:  model.BackendKind(row.BackendKind),
		Locator:      row.Locator,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

// gormFileRepo — реализация FileRepository поверх gorm (SQLite).
type gormFileRepo struct {
	db *gorm.DB
}

// NewGormFileRepository создаёт репозиторий метаданных поверх gorm.
// Схема создаётся database.OpenSQLite.
func NewGormFileRepository(db *gorm.DB) FileRepository {
	return &gormFileRepo{db: db}
}

func (r *gormFileRepo) Create(ctx context.Context, rec *model.FileRecord) (string, error) {
	prepareRecord(rec)

	row := fileRecordRow{
		ID:           rec.ID,
		OriginalName: rec.OriginalName,
		MimeType:     rec.MimeType,
		SizeBytes:    rec.SizeBytes,
		BackendKind:  string(rec.BackendKind),
		Locator:      rec.Locator,
		CreatedAt:    rec.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", fmt.Errorf("%w: id %s", ErrConflict, rec.ID)
		}
		return "", fmt.Errorf("%w: ошибка сохранения записи: %v", model.ErrPersistence, err)
	}
	return rec.ID, nil
}

func (r *gormFileRepo) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	var row fileRecordRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: файл %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: ошибка получения записи: %v", model.ErrPersistence, err)
	}
	return row.toModel(), nil
}

func (r *gormFileRepo) List(ctx context.Context, kind model.BackendKind) ([]*model.FileRecord, error) {
	var rows []fileRecordRow
	err := r.db.WithContext(ctx).
		Where("backend_kind = ?", string(kind)).
		Order("created_at DESC").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка получения списка: %v", model.ErrPersistence, err)
	}

	result := make([]*model.FileRecord, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}

func (r *gormFileRepo) DeleteByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&fileRecordRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("%w: ошибка удаления записи: %v", model.ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: файл %s", model.ErrNotFound, id)
	}
	return nil
}
