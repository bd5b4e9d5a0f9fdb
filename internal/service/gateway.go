// Пакет service — бизнес-логика File Manager.
// gateway.go — StorageGateway: единственный компонент, который в одной
// операции работает и с бэкендом байтов, и с хранилищем метаданных.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/repository"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/blob"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/wal"
)

// Journal — журнал операций (реализуется *wal.WAL).
type Journal interface {
	StartTransaction(op wal.OperationType, fileID string, kind model.BackendKind, locator string) (*wal.Entry, error)
	SetLocator(txID, locator string) error
	Commit(txID string) error
	Rollback(txID string) error
	RecoverPending() ([]*wal.Entry, error)
	CleanCommitted() (int, error)
}

// GatewayConfig — параметры StorageGateway.
type GatewayConfig struct {
	// MaxFileSize — максимальный размер файла в байтах
	MaxFileSize int64
	// OrphanCleanup — удалять байты, если запись метаданных не удалась
	OrphanCleanup bool
}

// GatewayOption — опция конструктора Gateway.
type GatewayOption func(*Gateway)

// WithJournal включает журнал операций.
func WithJournal(j Journal) GatewayOption {
	return func(g *Gateway) { g.journal = j }
}

// UploadRequest — входящий поток и заявленные клиентом атрибуты.
type UploadRequest struct {
	Reader       io.Reader
	OriginalName string
	MimeType     string
}

// RecoveryStats — итог восстановления журнала при старте.
type RecoveryStats struct {
	Committed  int
	RolledBack int
	Failed     int
	Cleaned    int
}

// Gateway — StorageGateway. Бэкенд фиксирован на время жизни процесса.
// Не держит блокировок между запросами: идентификаторы генерируются
// независимо, параллельные удаления разрешаются хранилищем метаданных.
type Gateway struct {
	backend blob.Backend
	repo    repository.FileRepository
	journal Journal
	cfg     GatewayConfig
	logger  *slog.Logger
}

// NewGateway создаёт StorageGateway.
func NewGateway(
	backend blob.Backend,
	repo repository.FileRepository,
	cfg GatewayConfig,
	logger *slog.Logger,
	opts ...GatewayOption,
) *Gateway {
	g := &Gateway{
		backend: backend,
		repo:    repo,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "gateway")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Kind возвращает тип настроенного бэкенда.
func (g *Gateway) Kind() model.BackendKind {
	return g.backend.Kind()
}

// Upload сохраняет поток в бэкенд, затем создаёт FileRecord.
//
// Поток:
//  1. WAL StartTransaction (если журнал включён)
//  2. backend.Store с ограничением размера
//  3. WAL SetLocator
//  4. repo.Create с размером, который сообщил бэкенд
//  5. WAL Commit
//
// Отказ на шаге 2 — записи нет, байты бэкенд убирает сам.
// Отказ на шаге 4 — байты становятся сиротой; при OrphanCleanup
// выполняется компенсирующее удаление, ошибка остаётся ErrPersistence.
func (g *Gateway) Upload(ctx context.Context, req UploadRequest) (*model.FileRecord, error) {
	sm := lifecycle.MustNew(lifecycle.OpUpload)
	start := time.Now()
	defer g.observe(sm, start)

	fileID := uuid.New().String()
	kind := g.backend.Kind()

	var tx *wal.Entry
	if g.journal != nil {
		var err error
		tx, err = g.journal.StartTransaction(wal.OpUpload, fileID, kind, "")
		if err != nil {
			_ = sm.TransitionTo(lifecycle.Failed)
			g.logger.Error("Ошибка создания WAL-транзакции", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%w: журнал недоступен: %v", model.ErrStorageIO, err)
		}
	}

	lr := newLimitedReader(req.Reader, g.cfg.MaxFileSize)
	res, err := g.backend.Store(ctx, lr, req.OriginalName, req.MimeType)
	if err != nil {
		_ = sm.TransitionTo(lifecycle.Failed)
		g.rollbackTx(tx)
		if lr.Exceeded() {
			return nil, fmt.Errorf("%w: максимум %d байт", model.ErrFileTooLarge, g.cfg.MaxFileSize)
		}
		if !errors.Is(err, model.ErrStorageIO) {
			err = fmt.Errorf("%w: %v", model.ErrStorageIO, err)
		}
		g.logger.Error("Ошибка записи байтов в бэкенд",
			slog.String("file_id", fileID),
			slog.String("original_name", req.OriginalName),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	_ = sm.TransitionTo(lifecycle.BytesPersisted)

	if tx != nil {
		if err := g.journal.SetLocator(tx.TransactionID, res.Locator); err != nil {
			g.logger.Warn("Не удалось записать локатор в WAL",
				slog.String("tx_id", tx.TransactionID),
				slog.String("error", err.Error()),
			)
		}
	}

	rec := &model.FileRecord{
		ID:           fileID,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    res.Size,
		BackendKind:  kind,
		Locator:      res.Locator,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := g.repo.Create(ctx, rec); err != nil {
		_ = sm.TransitionTo(lifecycle.Failed)
		if !errors.Is(err, model.ErrPersistence) {
			err = fmt.Errorf("%w: %v", model.ErrPersistence, err)
		}
		g.logger.Error("Ошибка записи метаданных, байты остались без записи",
			slog.String("file_id", fileID),
			slog.String("locator", res.Locator),
			slog.String("error", err.Error()),
		)
		g.handleOrphan(ctx, res.Locator, tx)
		return nil, err
	}
	_ = sm.TransitionTo(lifecycle.MetadataPersisted)

	g.commitTx(tx)
	_ = sm.TransitionTo(lifecycle.Done)
	uploadedBytesTotal.Add(float64(res.Size))

	g.logger.Info("Файл загружен",
		slog.String("file_id", rec.ID),
		slog.String("original_name", rec.OriginalName),
		slog.Int64("size", rec.SizeBytes),
		slog.String("backend", string(kind)),
	)
	return rec, nil
}

// List возвращает записи настроенного бэкенда, новые первыми.
func (g *Gateway) List(ctx context.Context) ([]*model.FileRecord, error) {
	list, err := g.repo.List(ctx, g.backend.Kind())
	if err != nil {
		operationsTotal.WithLabelValues("list", "error").Inc()
		return nil, err
	}
	operationsTotal.WithLabelValues("list", "ok").Inc()
	return list, nil
}

// Retrieve возвращает запись и поток байтов. NotFound из хранилища
// метаданных и из бэкенда пробрасывается без изменений.
// Вызывающий обязан закрыть поток.
func (g *Gateway) Retrieve(ctx context.Context, id string) (*model.FileRecord, io.ReadCloser, error) {
	rec, err := g.repo.FindByID(ctx, id)
	if err != nil {
		operationsTotal.WithLabelValues("download", resultLabel(err)).Inc()
		return nil, nil, err
	}

	backend, err := g.backendFor(rec)
	if err != nil {
		operationsTotal.WithLabelValues("download", "error").Inc()
		return nil, nil, err
	}

	rc, err := backend.Open(ctx, rec.Locator)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			g.logger.Warn("Запись есть, байтов нет",
				slog.String("file_id", rec.ID),
				slog.String("locator", rec.Locator),
			)
		}
		operationsTotal.WithLabelValues("download", resultLabel(err)).Inc()
		return nil, nil, err
	}
	operationsTotal.WithLabelValues("download", "ok").Inc()
	return rec, rc, nil
}

// Delete удаляет байты, затем запись.
//
// NotFound бэкенда поглощается. Ошибка ввода-вывода бэкенда
// логируется, удаление записи продолжается: запись не должна
// указывать на байты, которых может не быть.
//
// После того как запись найдена, удаление не отменяется вместе
// с запросом: байты и запись удаляются до конца.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	sm := lifecycle.MustNew(lifecycle.OpDelete)
	start := time.Now()
	defer g.observe(sm, start)

	rec, err := g.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			_ = sm.TransitionTo(lifecycle.NotFound)
		} else {
			_ = sm.TransitionTo(lifecycle.PartialFailure)
		}
		return err
	}
	_ = sm.TransitionTo(lifecycle.MetaFound)
	dctx := context.WithoutCancel(ctx)

	var tx *wal.Entry
	if g.journal != nil {
		tx, err = g.journal.StartTransaction(wal.OpDelete, rec.ID, rec.BackendKind, rec.Locator)
		if err != nil {
			g.logger.Warn("Удаление без WAL-транзакции",
				slog.String("file_id", rec.ID),
				slog.String("error", err.Error()),
			)
			tx = nil
		}
	}

	g.deleteBytes(dctx, rec, "delete_io_error")
	_ = sm.TransitionTo(lifecycle.BytesDeleted)

	if err := g.repo.DeleteByID(dctx, rec.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// Параллельное удаление успело первым
			_ = sm.TransitionTo(lifecycle.NotFound)
			g.commitTx(tx)
			return err
		}
		// Транзакция остаётся pending: Recover завершит удаление
		_ = sm.TransitionTo(lifecycle.PartialFailure)
		g.logger.Error("Байты удалены, запись метаданных — нет",
			slog.String("file_id", rec.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	_ = sm.TransitionTo(lifecycle.RecordDeleted)
	g.commitTx(tx)

	g.logger.Info("Файл удалён",
		slog.String("file_id", rec.ID),
		slog.String("backend", string(rec.BackendKind)),
	)
	return nil
}

// Recover обрабатывает незавершённые транзакции журнала.
// Вызывается при старте до приёма запросов.
//
//   - upload, запись есть — commit
//   - upload, записи нет — удаление байтов (если OrphanCleanup), rollback
//   - delete — повторное удаление байтов и записи, commit
//
// Если хранилище метаданных недоступно, транзакция остаётся pending.
func (g *Gateway) Recover(ctx context.Context) (RecoveryStats, error) {
	var stats RecoveryStats
	if g.journal == nil {
		return stats, nil
	}

	pending, err := g.journal.RecoverPending()
	if err != nil {
		return stats, fmt.Errorf("ошибка чтения журнала: %w", err)
	}

	for _, entry := range pending {
		log := g.logger.With(
			slog.String("tx_id", entry.TransactionID),
			slog.String("operation", string(entry.Operation)),
			slog.String("file_id", entry.FileID),
		)

		if entry.BackendKind != g.backend.Kind() {
			log.Warn("Транзакция другого бэкенда, пропуск",
				slog.String("backend", string(entry.BackendKind)),
			)
			stats.Failed++
			continue
		}

		switch entry.Operation {
		case wal.OpUpload:
			g.recoverUpload(ctx, entry, &stats, log)
		case wal.OpDelete:
			g.recoverDelete(ctx, entry, &stats, log)
		default:
			log.Warn("Неизвестная операция в журнале")
			stats.Failed++
		}
	}

	if _, err := g.journal.CleanCommitted(); err != nil {
		g.logger.Warn("Ошибка очистки журнала", slog.String("error", err.Error()))
	}

	if len(pending) > 0 {
		g.logger.Info("Восстановление журнала завершено",
			slog.Int("committed", stats.Committed),
			slog.Int("rolled_back", stats.RolledBack),
			slog.Int("cleaned", stats.Cleaned),
			slog.Int("failed", stats.Failed),
		)
	}
	return stats, nil
}

func (g *Gateway) recoverUpload(ctx context.Context, entry *wal.Entry, stats *RecoveryStats, log *slog.Logger) {
	_, err := g.repo.FindByID(ctx, entry.FileID)
	switch {
	case err == nil:
		// Запись создана, процесс упал до commit
		if err := g.journal.Commit(entry.TransactionID); err != nil {
			log.Warn("Ошибка commit при восстановлении", slog.String("error", err.Error()))
			stats.Failed++
			return
		}
		stats.Committed++
	case errors.Is(err, model.ErrNotFound):
		if entry.Locator != "" {
			if !g.cfg.OrphanCleanup {
				log.Warn("Байты без записи оставлены (ORPHAN_CLEANUP=false)",
					slog.String("locator", entry.Locator))
				orphanedBlobsTotal.WithLabelValues("recovery", "left").Inc()
			} else if delErr := g.backend.Delete(ctx, entry.Locator); delErr != nil && !errors.Is(delErr, model.ErrNotFound) {
				log.Warn("Не удалось удалить байты без записи",
					slog.String("locator", entry.Locator),
					slog.String("error", delErr.Error()),
				)
				orphanedBlobsTotal.WithLabelValues("recovery", "left").Inc()
				stats.Failed++
				return
			} else {
				orphanedBlobsTotal.WithLabelValues("recovery", "cleaned").Inc()
				stats.Cleaned++
			}
		}
		if err := g.journal.Rollback(entry.TransactionID); err != nil {
			log.Warn("Ошибка rollback при восстановлении", slog.String("error", err.Error()))
			stats.Failed++
			return
		}
		stats.RolledBack++
	default:
		log.Warn("Хранилище метаданных недоступно, транзакция оставлена",
			slog.String("error", err.Error()))
		stats.Failed++
	}
}

func (g *Gateway) recoverDelete(ctx context.Context, entry *wal.Entry, stats *RecoveryStats, log *slog.Logger) {
	if err := g.backend.Delete(ctx, entry.Locator); err != nil && !errors.Is(err, model.ErrNotFound) {
		log.Warn("Ошибка удаления байтов при восстановлении",
			slog.String("locator", entry.Locator),
			slog.String("error", err.Error()),
		)
	}
	if err := g.repo.DeleteByID(ctx, entry.FileID); err != nil && !errors.Is(err, model.ErrNotFound) {
		log.Warn("Хранилище метаданных недоступно, транзакция оставлена",
			slog.String("error", err.Error()))
		stats.Failed++
		return
	}
	if err := g.journal.Commit(entry.TransactionID); err != nil {
		log.Warn("Ошибка commit при восстановлении", slog.String("error", err.Error()))
		stats.Failed++
		return
	}
	stats.Committed++
}

// handleOrphan выполняет компенсирующее удаление байтов после отказа
// хранилища метаданных. Контекст запроса может быть отменён, поэтому
// удаление выполняется без отмены.
func (g *Gateway) handleOrphan(ctx context.Context, locator string, tx *wal.Entry) {
	if !g.cfg.OrphanCleanup {
		orphanedBlobsTotal.WithLabelValues("metadata_failure", "left").Inc()
		g.rollbackTx(tx)
		return
	}

	err := g.backend.Delete(context.WithoutCancel(ctx), locator)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		// Транзакция остаётся pending: Recover повторит удаление
		orphanedBlobsTotal.WithLabelValues("metadata_failure", "left").Inc()
		g.logger.Warn("Компенсирующее удаление не удалось",
			slog.String("locator", locator),
			slog.String("error", err.Error()),
		)
		return
	}
	orphanedBlobsTotal.WithLabelValues("metadata_failure", "cleaned").Inc()
	g.rollbackTx(tx)
}

// deleteBytes удаляет байты записи по best-effort семантике.
func (g *Gateway) deleteBytes(ctx context.Context, rec *model.FileRecord, reason string) {
	backend, err := g.backendFor(rec)
	if err == nil {
		err = backend.Delete(ctx, rec.Locator)
	}
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		g.logger.Debug("Байты уже отсутствуют",
			slog.String("file_id", rec.ID),
			slog.String("locator", rec.Locator),
		)
	default:
		orphanedBlobsTotal.WithLabelValues(reason, "left").Inc()
		g.logger.Warn("Ошибка удаления байтов, удаление записи продолжается",
			slog.String("file_id", rec.ID),
			slog.String("locator", rec.Locator),
			slog.String("error", err.Error()),
		)
	}
}

// backendFor возвращает бэкенд, которому принадлежат байты записи.
func (g *Gateway) backendFor(rec *model.FileRecord) (blob.Backend, error) {
	if rec.BackendKind != g.backend.Kind() {
		return nil, fmt.Errorf("%w: запись %s принадлежит бэкенду %s, настроен %s",
			model.ErrStorageIO, rec.ID, rec.BackendKind, g.backend.Kind())
	}
	return g.backend, nil
}

func (g *Gateway) commitTx(tx *wal.Entry) {
	if tx == nil {
		return
	}
	if err := g.journal.Commit(tx.TransactionID); err != nil {
		g.logger.Warn("Ошибка commit WAL-транзакции",
			slog.String("tx_id", tx.TransactionID),
			slog.String("error", err.Error()),
		)
	}
}

func (g *Gateway) rollbackTx(tx *wal.Entry) {
	if tx == nil {
		return
	}
	if err := g.journal.Rollback(tx.TransactionID); err != nil {
		g.logger.Warn("Ошибка rollback WAL-транзакции",
			slog.String("tx_id", tx.TransactionID),
			slog.String("error", err.Error()),
		)
	}
}

// observe записывает метрики завершённой операции.
func (g *Gateway) observe(sm *lifecycle.Machine, start time.Time) {
	op := string(sm.Operation())
	operationsTotal.WithLabelValues(op, sm.Result()).Inc()
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if sm.Result() == "error" {
		g.logger.Debug("Операция прервана",
			slog.String("operation", op),
			slog.String("failed_at", string(sm.FailedAt())),
			slog.String("state", string(sm.Current())),
		)
	}
}

func resultLabel(err error) string {
	if errors.Is(err, model.ErrNotFound) {
		return "not_found"
	}
	return "error"
}
