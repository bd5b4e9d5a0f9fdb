// cache.go — LRU-кэш метаданных поверх FileRepository.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/repository"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fm_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fm_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных.",
	})
)

// CachedRepository — FileRepository с LRU-кэшем FindByID.
// FileRecord неизменяем после создания, поэтому инвалидация нужна
// только при удалении. List всегда идёт в хранилище.
type CachedRepository struct {
	repository.FileRepository
	cache *expirable.LRU[string, model.FileRecord]

	// deleteGen растёт при каждом начале и завершении DeleteByID.
	// Промах FindByID кладёт запись в кэш, только если за время
	// чтения из хранилища не было удалений.
	mu        sync.Mutex
	deleteGen uint64
}

var _ repository.FileRepository = (*CachedRepository)(nil)

// NewCachedRepository создаёт кэширующую обёртку.
// maxSize — максимальное количество записей, ttl — время жизни записи.
func NewCachedRepository(repo repository.FileRepository, maxSize int, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		FileRepository: repo,
		cache:          expirable.NewLRU[string, model.FileRecord](maxSize, nil, ttl),
	}
}

// FindByID возвращает копию записи из кэша или читает её из хранилища.
// NotFound не кэшируется.
func (c *CachedRepository) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if rec, ok := c.cache.Get(id); ok {
		cacheHitsTotal.Inc()
		return &rec, nil
	}
	cacheMissesTotal.Inc()

	c.mu.Lock()
	gen := c.deleteGen
	c.mu.Unlock()

	rec, err := c.FileRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.deleteGen == gen {
		c.cache.Add(id, *rec)
	}
	c.mu.Unlock()
	return rec, nil
}

// DeleteByID инвалидирует запись до и после удаления: параллельный
// FindByID не вернёт удалённую запись из кэша и не положит её обратно.
func (c *CachedRepository) DeleteByID(ctx context.Context, id string) error {
	c.mu.Lock()
	c.deleteGen++
	c.mu.Unlock()
	c.cache.Remove(id)

	err := c.FileRepository.DeleteByID(ctx, id)

	c.mu.Lock()
	c.cache.Remove(id)
	c.deleteGen++
	c.mu.Unlock()
	return err
}

// Len возвращает количество записей в кэше.
func (c *CachedRepository) Len() int {
	return c.cache.Len()
}
