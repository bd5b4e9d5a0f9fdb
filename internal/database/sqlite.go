// sqlite.go — встраиваемое хранилище метаданных на SQLite (gorm)
// для развёртываний без PostgreSQL.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fileRecordV1 — снимок схемы file_records на момент первой миграции.
// Модель репозитория может меняться, миграция — нет.
type fileRecordV1 struct {
	ID           string    `gorm:"primaryKey;type:text"`
	OriginalName string    `gorm:"not null"`
	MimeType     string    `gorm:"not null"`
	SizeBytes    int64     `gorm:"not null"`
	BackendKind  string    `gorm:"not null;index:idx_file_records_kind_created,priority:1"`
	Locator      string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index:idx_file_records_kind_created,priority:2"`
}

func (fileRecordV1) TableName() string { return "file_records" }

var sqliteMigrations = []*gormigrate.Migration{
	{
		ID: "202610190001",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&fileRecordV1{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("file_records")
		},
	},
}

// OpenSQLite открывает (или создаёт) файл SQLite и применяет миграции.
// path=":memory:" — база в памяти, используется в тестах.
func OpenSQLite(path string, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite %q: %w", path, err)
	}

	// SQLite не допускает параллельной записи из нескольких соединений.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения *sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := MigrateSQLite(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("SQLite хранилище метаданных открыто", slog.String("path", path))
	return db, nil
}

// MigrateSQLite применяет миграции gormigrate.
func MigrateSQLite(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, sqliteMigrations)
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("ошибка применения миграций SQLite: %w", err)
	}
	return nil
}

// SQLiteReadinessChecker — проверка готовности SQLite для health endpoint.
type SQLiteReadinessChecker struct {
	db *gorm.DB
}

// NewSQLiteReadinessChecker создаёт проверку готовности SQLite.
func NewSQLiteReadinessChecker(db *gorm.DB) *SQLiteReadinessChecker {
	return &SQLiteReadinessChecker{db: db}
}

// Name возвращает имя проверки в ответе /health/ready.
func (c *SQLiteReadinessChecker) Name() string { return "sqlite" }

// CheckReady выполняет ping базы SQLite.
func (c *SQLiteReadinessChecker) CheckReady(ctx context.Context) (status string, message string) {
	sqlDB, err := c.db.DB()
	if err != nil {
		return "fail", fmt.Sprintf("SQLite недоступен: %v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return "fail", fmt.Sprintf("SQLite недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
