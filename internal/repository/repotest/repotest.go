// Пакет repotest — общий набор тестов для реализаций
// repository.FileRepository. Каждый драйвер метаданных обязан
// проходить одни и те же сценарии.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/repository"
)

// Run прогоняет сценарии FileRepository. newRepo вызывается для
// каждого подтеста и должен возвращать пустое хранилище.
func Run(t *testing.T, newRepo func(t *testing.T) repository.FileRepository) {
	t.Helper()

	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newRepo(t)) })
	t.Run("CreateGeneratesID", func(t *testing.T) { testCreateGeneratesID(t, newRepo(t)) })
	t.Run("FindNotFound", func(t *testing.T) { testFindNotFound(t, newRepo(t)) })
	t.Run("ListByKindNewestFirst", func(t *testing.T) { testListByKind(t, newRepo(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newRepo(t)) })
	t.Run("DeleteTwice", func(t *testing.T) { testDeleteTwice(t, newRepo(t)) })
	t.Run("ConcurrentDelete", func(t *testing.T) { testConcurrentDelete(t, newRepo(t)) })
}

// NewRecord создаёт запись для тестов.
func NewRecord(kind model.BackendKind, name string, createdAt time.Time) *model.FileRecord {
	return &model.FileRecord{
		ID:           uuid.New().String(),
		OriginalName: name,
		MimeType:     "text/plain",
		SizeBytes:    int64(len(name)),
		BackendKind:  kind,
		Locator:      "loc-" + name,
		CreatedAt:    createdAt.UTC().Truncate(time.Millisecond),
	}
}

func testCreateAndFind(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	rec := NewRecord(model.BackendLocal, "отчёт.pdf", time.Now())
	rec.MimeType = "application/pdf"
	rec.SizeBytes = 4096

	id, err := repo.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if id != rec.ID {
		t.Errorf("Create() id = %q, ожидался %q", id, rec.ID)
	}

	got, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID() вернул ошибку: %v", err)
	}
	if got.OriginalName != "отчёт.pdf" || got.MimeType != "application/pdf" || got.SizeBytes != 4096 {
		t.Errorf("FindByID() = %+v", got)
	}
	if got.BackendKind != model.BackendLocal || got.Locator != rec.Locator {
		t.Errorf("бэкенд/локатор: %s/%s", got.BackendKind, got.Locator)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, ожидалось %v", got.CreatedAt, rec.CreatedAt)
	}
}

func testCreateGeneratesID(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	rec := &model.FileRecord{
		OriginalName: "a.txt",
		MimeType:     "text/plain",
		SizeBytes:    1,
		BackendKind:  model.BackendChunked,
		Locator:      "blob-1",
	}

	id, err := repo.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("сгенерированный ID %q не UUID: %v", id, err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt не заполнен")
	}

	if _, err := repo.FindByID(ctx, id); err != nil {
		t.Fatalf("FindByID() вернул ошибку: %v", err)
	}
}

func testFindNotFound(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	for _, id := range []string{uuid.New().String(), "не-uuid", ""} {
		_, err := repo.FindByID(ctx, id)
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("FindByID(%q) ошибка = %v, ожидалась ErrNotFound", id, err)
		}
	}
}

func testListByKind(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	older := NewRecord(model.BackendLocal, "older", base)
	newer := NewRecord(model.BackendLocal, "newer", base.Add(time.Minute))
	other := NewRecord(model.BackendChunked, "chunked", base.Add(2*time.Minute))

	for _, rec := range []*model.FileRecord{older, other, newer} {
		if _, err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create(%s) вернул ошибку: %v", rec.OriginalName, err)
		}
	}

	local, err := repo.List(ctx, model.BackendLocal)
	if err != nil {
		t.Fatalf("List(local) вернул ошибку: %v", err)
	}
	if len(local) != 2 {
		t.Fatalf("List(local): %d записей, ожидалось 2", len(local))
	}
	if local[0].ID != newer.ID || local[1].ID != older.ID {
		t.Errorf("порядок List(local): %s, %s", local[0].OriginalName, local[1].OriginalName)
	}

	chunked, err := repo.List(ctx, model.BackendChunked)
	if err != nil {
		t.Fatalf("List(chunked) вернул ошибку: %v", err)
	}
	if len(chunked) != 1 || chunked[0].ID != other.ID {
		t.Errorf("List(chunked) = %v", chunked)
	}
}

func testListEmpty(t *testing.T, repo repository.FileRepository) {
	list, err := repo.List(context.Background(), model.BackendLocal)
	if err != nil {
		t.Fatalf("List() вернул ошибку: %v", err)
	}
	if list == nil {
		t.Error("List() вернул nil, ожидался пустой срез")
	}
	if len(list) != 0 {
		t.Errorf("List(): %d записей, ожидалось 0", len(list))
	}
}

func testDeleteTwice(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	rec := NewRecord(model.BackendLocal, "del.txt", time.Now())
	if _, err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	if err := repo.DeleteByID(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteByID() вернул ошибку: %v", err)
	}
	if err := repo.DeleteByID(ctx, rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("повторный DeleteByID() ошибка = %v, ожидалась ErrNotFound", err)
	}
	if _, err := repo.FindByID(ctx, rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("FindByID() после удаления: %v", err)
	}
}

// testConcurrentDelete — из N параллельных удалений ровно одно успешно.
func testConcurrentDelete(t *testing.T, repo repository.FileRepository) {
	ctx := context.Background()
	rec := NewRecord(model.BackendLocal, "race.txt", time.Now())
	if _, err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		notFound int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.DeleteByID(ctx, rec.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, model.ErrNotFound):
				notFound++
			default:
				t.Errorf("DeleteByID() неожиданная ошибка: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || notFound != workers-1 {
		t.Errorf("успешных удалений %d, NotFound %d; ожидалось 1 и %d", ok, notFound, workers-1)
	}
}
