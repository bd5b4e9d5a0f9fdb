package database

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goartstore/file-manager/internal/config"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers.
// Возвращает конфиг, указывающий на контейнер.
func setupTestDB(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("file_manager_test"),
		postgres.WithUsername("file_manager"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	return &config.Config{
		DBHost:     host,
		DBPort:     port.Int(),
		DBName:     "file_manager_test",
		DBUser:     "file_manager",
		DBPassword: "test-password",
		DBSSLMode:  "disable",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestConnect проверяет подключение к PostgreSQL через pgxpool.
func TestConnect(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pool.Ping() вернул ошибку: %v", err)
	}
}

// TestMigrate проверяет применение миграций и их идемпотентность.
func TestMigrate(t *testing.T) {
	cfg := setupTestDB(t)
	logger := testLogger()

	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	// Повторное применение — должно быть без ошибки (ErrNoChange)
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Повторный Migrate() вернул ошибку: %v", err)
	}

	ctx := context.Background()
	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	for _, table := range []string{"file_records", "blobs", "blob_chunks"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("Ошибка проверки таблицы %s: %v", table, err)
		}
		if !exists {
			t.Errorf("Таблица %s не создана", table)
		}
	}

	// Чанки удаляются каскадно вместе с блобом
	_, err = pool.Exec(ctx,
		`INSERT INTO blobs (id, filename, content_type, chunk_size) VALUES ($1, 'a.txt', 'text/plain', 4)`,
		"6f1c1f0e-8d6b-4d59-9a3c-0d4c8a1b2c3d")
	if err != nil {
		t.Fatalf("INSERT blobs: %v", err)
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO blob_chunks (blob_id, n, data) VALUES ($1, 0, 'abcd')`,
		"6f1c1f0e-8d6b-4d59-9a3c-0d4c8a1b2c3d")
	if err != nil {
		t.Fatalf("INSERT blob_chunks: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM blobs`); err != nil {
		t.Fatalf("DELETE blobs: %v", err)
	}
	var chunks int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM blob_chunks`).Scan(&chunks); err != nil {
		t.Fatalf("count blob_chunks: %v", err)
	}
	if chunks != 0 {
		t.Errorf("после удаления блоба осталось %d чанков", chunks)
	}
}

// TestPoolReadinessChecker проверяет PoolReadinessChecker.
func TestPoolReadinessChecker(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	checker := NewPoolReadinessChecker(pool)
	status, msg := checker.CheckReady(ctx)
	if status != "ok" {
		t.Errorf("CheckReady() status = %q, message = %q; ожидали %q", status, msg, "ok")
	}
}

func TestOpenSQLite(t *testing.T) {
	db, err := OpenSQLite(":memory:", testLogger())
	if err != nil {
		t.Fatalf("OpenSQLite() вернул ошибку: %v", err)
	}

	if !db.Migrator().HasTable("file_records") {
		t.Fatal("таблица file_records не создана")
	}
	if !db.Migrator().HasIndex(&fileRecordV1{}, "idx_file_records_kind_created") {
		t.Error("индекс idx_file_records_kind_created не создан")
	}

	// Повторная миграция не должна падать
	if err := MigrateSQLite(db); err != nil {
		t.Fatalf("повторный MigrateSQLite() вернул ошибку: %v", err)
	}

	status, msg := NewSQLiteReadinessChecker(db).CheckReady(context.Background())
	if status != "ok" {
		t.Errorf("CheckReady() status = %q, message = %q", status, msg)
	}
}

func TestOpenSQLite_File(t *testing.T) {
	path := t.TempDir() + "/fm.db"

	db, err := OpenSQLite(path, testLogger())
	if err != nil {
		t.Fatalf("OpenSQLite() вернул ошибку: %v", err)
	}
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("файл базы не создан: %v", err)
	}

	// Повторное открытие существующей базы
	db, err = OpenSQLite(path, testLogger())
	if err != nil {
		t.Fatalf("повторный OpenSQLite() вернул ошибку: %v", err)
	}
	sqlDB, _ = db.DB()
	_ = sqlDB.Close()
}
