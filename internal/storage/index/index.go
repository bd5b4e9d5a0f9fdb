// Пакет index — потокобезопасное хранилище метаданных в памяти
// (METADATA_DRIVER=memory).
//
// Не персистентное: при рестарте все записи теряются, а байты
// в бэкенде становятся сиротами. Подходит для тестов и демо.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/repository"
)

// Index — in-memory реализация repository.FileRepository.
// Использует sync.RWMutex для конкурентного чтения и
// эксклюзивной записи.
type Index struct {
	mu     sync.RWMutex
	files  map[string]*model.FileRecord // id → запись
	logger *slog.Logger
}

var _ repository.FileRepository = (*Index)(nil)

// New создаёт пустой индекс.
func New(logger *slog.Logger) *Index {
	return &Index{
		files:  make(map[string]*model.FileRecord),
		logger: logger.With(slog.String("component", "index")),
	}
}

// Create добавляет запись. Существующий ID — repository.ErrConflict.
func (idx *Index) Create(_ context.Context, rec *model.FileRecord) (string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, ok := idx.files[rec.ID]; ok {
		return "", fmt.Errorf("%w: id %s", repository.ErrConflict, rec.ID)
	}

	// Храним копию, чтобы избежать data race при внешних изменениях
	copied := *rec
	idx.files[rec.ID] = &copied

	idx.logger.Debug("Запись добавлена в индекс",
		slog.String("file_id", rec.ID),
		slog.Int("files", len(idx.files)),
	)
	return rec.ID, nil
}

// FindByID возвращает копию записи.
func (idx *Index) FindByID(_ context.Context, id string) (*model.FileRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rec, ok := idx.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: файл %s", model.ErrNotFound, id)
	}
	copied := *rec
	return &copied, nil
}

// List возвращает копии записей указанного бэкенда.
// Сортировка: по времени загрузки (новые первые), затем по ID.
func (idx *Index) List(_ context.Context, kind model.BackendKind) ([]*model.FileRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make([]*model.FileRecord, 0, len(idx.files))
	for _, rec := range idx.files {
		if rec.BackendKind != kind {
			continue
		}
		copied := *rec
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteByID удаляет запись. Повторное удаление — model.ErrNotFound.
func (idx *Index) DeleteByID(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.files[id]; !ok {
		return fmt.Errorf("%w: файл %s", model.ErrNotFound, id)
	}
	delete(idx.files, id)
	return nil
}

// Count возвращает общее количество записей.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.files)
}
