package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/repository"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/blob"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/index"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/wal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memBackend — бэкенд в памяти для тестов gateway.
type memBackend struct {
	kind model.BackendKind

	mu    sync.Mutex
	blobs map[string][]byte

	storeErr  error
	deleteErr error
	deletes   int
}

func newMemBackend(kind model.BackendKind) *memBackend {
	return &memBackend{kind: kind, blobs: make(map[string][]byte)}
}

func (b *memBackend) Kind() model.BackendKind { return b.kind }

func (b *memBackend) Store(_ context.Context, r io.Reader, _, _ string) (*blob.StoreResult, error) {
	if b.storeErr != nil {
		return nil, b.storeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageIO, err)
	}
	loc := uuid.New().String()
	b.mu.Lock()
	b.blobs[loc] = data
	b.mu.Unlock()
	return &blob.StoreResult{Locator: loc, Size: int64(len(data))}, nil
}

func (b *memBackend) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[locator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, locator)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBackend) Delete(_ context.Context, locator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes++
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.blobs[locator]; !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, locator)
	}
	delete(b.blobs, locator)
	return nil
}

func (b *memBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

// faultyRepo — хранилище метаданных с управляемыми отказами.
type faultyRepo struct {
	repository.FileRepository
	createErr error
	deleteErr error
	findErr   error
}

func (r *faultyRepo) Create(ctx context.Context, rec *model.FileRecord) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}
	return r.FileRepository.Create(ctx, rec)
}

func (r *faultyRepo) DeleteByID(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.FileRepository.DeleteByID(ctx, id)
}

func (r *faultyRepo) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.FileRepository.FindByID(ctx, id)
}

// cancelOnDelete — бэкенд, который отменяет контекст запроса сразу
// после удаления байтов (клиент отключился посреди удаления).
type cancelOnDelete struct {
	*memBackend
	cancel context.CancelFunc
}

func (b *cancelOnDelete) Delete(ctx context.Context, locator string) error {
	err := b.memBackend.Delete(ctx, locator)
	b.cancel()
	return err
}

// ctxRepo — хранилище метаданных, которое, как pgx и gorm,
// отказывает при отменённом контексте.
type ctxRepo struct {
	repository.FileRepository
}

func (r *ctxRepo) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return r.FileRepository.DeleteByID(ctx, id)
}

func newTestGateway(t *testing.T, backend blob.Backend, repo repository.FileRepository, cfg GatewayConfig, opts ...GatewayOption) *Gateway {
	t.Helper()
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 1024
	}
	return NewGateway(backend, repo, cfg, testLogger(), opts...)
}

func newTestJournal(t *testing.T) *wal.WAL {
	t.Helper()
	w, err := wal.New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("wal.New: %v", err)
	}
	return w
}

func upload(t *testing.T, g *Gateway, name, content string) *model.FileRecord {
	t.Helper()
	rec, err := g.Upload(context.Background(), UploadRequest{
		Reader:       strings.NewReader(content),
		OriginalName: name,
		MimeType:     "text/plain",
	})
	if err != nil {
		t.Fatalf("Upload(%q) вернул ошибку: %v", name, err)
	}
	return rec
}

func TestGateway_RoundTrip(t *testing.T) {
	backend := newMemBackend(model.BackendLocal)
	repo := index.New(testLogger())
	g := newTestGateway(t, backend, repo, GatewayConfig{})
	ctx := context.Background()

	rec := upload(t, g, "отчёт.txt", "hello")

	if rec.SizeBytes != 5 {
		t.Errorf("SizeBytes = %d, ожидалось 5", rec.SizeBytes)
	}
	if rec.BackendKind != model.BackendLocal {
		t.Errorf("BackendKind = %q", rec.BackendKind)
	}
	if _, err := uuid.Parse(rec.ID); err != nil {
		t.Errorf("ID %q не UUID: %v", rec.ID, err)
	}

	list, err := g.List(ctx)
	if err != nil {
		t.Fatalf("List() вернул ошибку: %v", err)
	}
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Fatalf("List() = %+v, ожидалась одна запись %s", list, rec.ID)
	}

	got, rc, err := g.Retrieve(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Retrieve() вернул ошибку: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "hello" {
		t.Errorf("содержимое = %q, ожидалось %q", data, "hello")
	}
	if got.OriginalName != "отчёт.txt" || got.MimeType != "text/plain" {
		t.Errorf("запись = %+v", got)
	}

	if err := g.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	if backend.count() != 0 {
		t.Errorf("в бэкенде осталось %d блобов", backend.count())
	}
	if _, _, err := g.Retrieve(ctx, rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Retrieve() после удаления: %v, ожидалась ErrNotFound", err)
	}
}

func TestGateway_ListOnlyConfiguredBackend(t *testing.T) {
	repo := index.New(testLogger())
	local := newTestGateway(t, newMemBackend(model.BackendLocal), repo, GatewayConfig{})
	chunked := newTestGateway(t, newMemBackend(model.BackendChunked), repo, GatewayConfig{})

	upload(t, local, "a.txt", "a")
	upload(t, chunked, "b.txt", "b")

	list, err := local.List(context.Background())
	if err != nil {
		t.Fatalf("List() вернул ошибку: %v", err)
	}
	if len(list) != 1 || list[0].OriginalName != "a.txt" {
		t.Errorf("List() = %+v, ожидался только a.txt", list)
	}
}

func TestGateway_UploadSizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{"пустой файл", 0, nil},
		{"ровно лимит", 100, nil},
		{"лимит плюс байт", 101, model.ErrFileTooLarge},
		{"намного больше", 10_000, model.ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMemBackend(model.BackendLocal)
			repo := index.New(testLogger())
			g := newTestGateway(t, backend, repo, GatewayConfig{MaxFileSize: 100})

			rec, err := g.Upload(context.Background(), UploadRequest{
				Reader:       bytes.NewReader(bytes.Repeat([]byte("x"), tt.size)),
				OriginalName: "f.bin",
				MimeType:     "application/octet-stream",
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Upload() ошибка = %v, ожидалась %v", err, tt.wantErr)
				}
				if !errors.Is(err, model.ErrValidation) {
					t.Errorf("ErrFileTooLarge должна быть ErrValidation")
				}
				if repo.Count() != 0 || backend.count() != 0 {
					t.Errorf("после отказа: записей %d, блобов %d", repo.Count(), backend.count())
				}
				return
			}
			if err != nil {
				t.Fatalf("Upload() вернул ошибку: %v", err)
			}
			if rec.SizeBytes != int64(tt.size) {
				t.Errorf("SizeBytes = %d, ожидалось %d", rec.SizeBytes, tt.size)
			}
		})
	}
}

func TestGateway_UploadStoreFailure(t *testing.T) {
	backend := newMemBackend(model.BackendChunked)
	backend.storeErr = errors.New("диск отвалился")
	repo := index.New(testLogger())
	journal := newTestJournal(t)
	g := newTestGateway(t, backend, repo, GatewayConfig{}, WithJournal(journal))

	_, err := g.Upload(context.Background(), UploadRequest{Reader: strings.NewReader("x"), OriginalName: "x"})
	if !errors.Is(err, model.ErrStorageIO) {
		t.Fatalf("Upload() ошибка = %v, ожидалась ErrStorageIO", err)
	}
	if repo.Count() != 0 {
		t.Errorf("запись создана при отказе бэкенда")
	}

	pending, err := journal.RecoverPending()
	if err != nil {
		t.Fatalf("RecoverPending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("осталось %d pending транзакций", len(pending))
	}
}

func TestGateway_UploadMetadataFailure(t *testing.T) {
	persistErr := fmt.Errorf("%w: соединение потеряно", model.ErrPersistence)

	tests := []struct {
		name          string
		orphanCleanup bool
		wantBlobs     int
	}{
		{"с компенсацией", true, 0},
		{"без компенсации", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMemBackend(model.BackendLocal)
			repo := &faultyRepo{FileRepository: index.New(testLogger()), createErr: persistErr}
			journal := newTestJournal(t)
			g := newTestGateway(t, backend, repo, GatewayConfig{OrphanCleanup: tt.orphanCleanup}, WithJournal(journal))

			_, err := g.Upload(context.Background(), UploadRequest{Reader: strings.NewReader("data"), OriginalName: "d"})
			if !errors.Is(err, model.ErrPersistence) {
				t.Fatalf("Upload() ошибка = %v, ожидалась ErrPersistence", err)
			}
			if backend.count() != tt.wantBlobs {
				t.Errorf("блобов = %d, ожидалось %d", backend.count(), tt.wantBlobs)
			}

			pending, _ := journal.RecoverPending()
			if len(pending) != 0 {
				t.Errorf("осталось %d pending транзакций", len(pending))
			}
		})
	}
}

func TestGateway_UploadCleanupFailureLeavesPending(t *testing.T) {
	backend := newMemBackend(model.BackendLocal)
	repo := &faultyRepo{
		FileRepository: index.New(testLogger()),
		createErr:      fmt.Errorf("%w: нет соединения", model.ErrPersistence),
	}
	journal := newTestJournal(t)
	g := newTestGateway(t, backend, repo, GatewayConfig{OrphanCleanup: true}, WithJournal(journal))

	backend.deleteErr = fmt.Errorf("%w: только чтение", model.ErrStorageIO)
	if _, err := g.Upload(context.Background(), UploadRequest{Reader: strings.NewReader("data")}); err == nil {
		t.Fatal("Upload() должен вернуть ошибку")
	}

	pending, _ := journal.RecoverPending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, ожидалась 1", len(pending))
	}
	if pending[0].Locator == "" {
		t.Error("локатор не записан в журнал")
	}

	// Бэкенд восстановился, метаданные — тоже: Recover удаляет сироту
	backend.deleteErr = nil
	repo.createErr = nil
	stats, err := g.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover() вернул ошибку: %v", err)
	}
	if stats.RolledBack != 1 || stats.Cleaned != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if backend.count() != 0 {
		t.Errorf("сирота не удалена")
	}
}

func TestGateway_DeleteTwice(t *testing.T) {
	g := newTestGateway(t, newMemBackend(model.BackendLocal), index.New(testLogger()), GatewayConfig{})
	rec := upload(t, g, "a", "a")

	if err := g.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("первый Delete() вернул ошибку: %v", err)
	}
	if err := g.Delete(context.Background(), rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("второй Delete() = %v, ожидалась ErrNotFound", err)
	}
}

func TestGateway_DeleteUnknownID(t *testing.T) {
	g := newTestGateway(t, newMemBackend(model.BackendLocal), index.New(testLogger()), GatewayConfig{})
	if err := g.Delete(context.Background(), "не-uuid"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Delete() = %v, ожидалась ErrNotFound", err)
	}
}

func TestGateway_DeleteMissingBytes(t *testing.T) {
	backend := newMemBackend(model.BackendLocal)
	repo := index.New(testLogger())
	g := newTestGateway(t, backend, repo, GatewayConfig{})
	rec := upload(t, g, "a", "a")

	// Байты пропали вне сервиса
	backend.blobs = map[string][]byte{}

	if err := g.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	if repo.Count() != 0 {
		t.Error("запись не удалена")
	}
}

func TestGateway_DeleteBackendIOError(t *testing.T) {
	backend := newMemBackend(model.BackendChunked)
	repo := index.New(testLogger())
	g := newTestGateway(t, backend, repo, GatewayConfig{})
	rec := upload(t, g, "a", "a")

	backend.deleteErr = fmt.Errorf("%w: таймаут", model.ErrStorageIO)
	if err := g.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	if repo.Count() != 0 {
		t.Error("запись должна быть удалена и при ошибке бэкенда")
	}
}

func TestGateway_DeleteMetadataFailure(t *testing.T) {
	backend := newMemBackend(model.BackendLocal)
	repo := &faultyRepo{FileRepository: index.New(testLogger())}
	journal := newTestJournal(t)
	g := newTestGateway(t, backend, repo, GatewayConfig{}, WithJournal(journal))
	rec := upload(t, g, "a", "a")

	repo.deleteErr = fmt.Errorf("%w: нет соединения", model.ErrPersistence)
	if err := g.Delete(context.Background(), rec.ID); !errors.Is(err, model.ErrPersistence) {
		t.Fatalf("Delete() = %v, ожидалась ErrPersistence", err)
	}

	// Recover завершает удаление
	repo.deleteErr = nil
	stats, err := g.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover() вернул ошибку: %v", err)
	}
	if stats.Committed != 1 {
		t.Errorf("stats = %+v, ожидался 1 commit", stats)
	}
	if _, err := repo.FindByID(context.Background(), rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("запись не удалена после Recover: %v", err)
	}
}

func TestGateway_DeleteSurvivesClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &cancelOnDelete{memBackend: newMemBackend(model.BackendLocal), cancel: cancel}
	inner := index.New(testLogger())
	g := newTestGateway(t, backend, &ctxRepo{FileRepository: inner}, GatewayConfig{})
	rec := upload(t, g, "a.txt", "abc")

	if err := g.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("контекст запроса должен быть отменён бэкендом")
	}
	if backend.count() != 0 {
		t.Errorf("байты не удалены: %d блобов", backend.count())
	}
	if _, err := inner.FindByID(context.Background(), rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("запись осталась после удаления байтов: %v", err)
	}
}

func TestGateway_UploadMaxInt64Limit(t *testing.T) {
	g := newTestGateway(t, newMemBackend(model.BackendLocal), index.New(testLogger()),
		GatewayConfig{MaxFileSize: math.MaxInt64})

	rec := upload(t, g, "a.txt", "abc")
	if rec.SizeBytes != 3 {
		t.Errorf("SizeBytes = %d, ожидалось 3", rec.SizeBytes)
	}
}

func TestGateway_ConcurrentDelete(t *testing.T) {
	g := newTestGateway(t, newMemBackend(model.BackendLocal), index.New(testLogger()), GatewayConfig{})
	rec := upload(t, g, "a", "a")

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- g.Delete(context.Background(), rec.ID)
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrNotFound):
		default:
			t.Errorf("неожиданная ошибка: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("успешных удалений = %d, ожидалось 1", ok)
	}
}

func TestGateway_RetrieveMissingBytes(t *testing.T) {
	backend := newMemBackend(model.BackendLocal)
	g := newTestGateway(t, backend, index.New(testLogger()), GatewayConfig{})
	rec := upload(t, g, "a", "a")
	backend.blobs = map[string][]byte{}

	if _, _, err := g.Retrieve(context.Background(), rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Retrieve() = %v, ожидалась ErrNotFound", err)
	}
}

func TestGateway_RetrieveForeignBackend(t *testing.T) {
	repo := index.New(testLogger())
	chunked := newTestGateway(t, newMemBackend(model.BackendChunked), repo, GatewayConfig{})
	local := newTestGateway(t, newMemBackend(model.BackendLocal), repo, GatewayConfig{})
	rec := upload(t, chunked, "a", "a")

	if _, _, err := local.Retrieve(context.Background(), rec.ID); !errors.Is(err, model.ErrStorageIO) {
		t.Errorf("Retrieve() = %v, ожидалась ErrStorageIO", err)
	}
}

func TestGateway_RecoverPendingUpload(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend(model.BackendLocal)
	repo := index.New(testLogger())
	journal := newTestJournal(t)
	g := newTestGateway(t, backend, repo, GatewayConfig{OrphanCleanup: true}, WithJournal(journal))

	// Процесс упал после записи байтов, до записи метаданных
	res, _ := backend.Store(ctx, strings.NewReader("orphan"), "o", "")
	tx1, _ := journal.StartTransaction(wal.OpUpload, uuid.New().String(), model.BackendLocal, "")
	_ = journal.SetLocator(tx1.TransactionID, res.Locator)

	// Процесс упал после записи метаданных, до commit
	rec := &model.FileRecord{
		ID:          uuid.New().String(),
		BackendKind: model.BackendLocal,
		Locator:     "kept",
	}
	if _, err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, _ = journal.StartTransaction(wal.OpUpload, rec.ID, model.BackendLocal, "kept")

	// Процесс упал до записи байтов
	_, _ = journal.StartTransaction(wal.OpUpload, uuid.New().String(), model.BackendLocal, "")

	stats, err := g.Recover(ctx)
	if err != nil {
		t.Fatalf("Recover() вернул ошибку: %v", err)
	}
	if stats.Committed != 1 || stats.RolledBack != 2 || stats.Cleaned != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if backend.count() != 0 {
		t.Error("сирота не удалена")
	}
	if repo.Count() != 1 {
		t.Errorf("записей = %d, ожидалась 1", repo.Count())
	}

	pending, _ := journal.RecoverPending()
	if len(pending) != 0 {
		t.Errorf("осталось %d pending транзакций", len(pending))
	}
}

func TestGateway_RecoverKeepsOrphanWithoutCleanup(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend(model.BackendLocal)
	journal := newTestJournal(t)
	g := newTestGateway(t, backend, index.New(testLogger()), GatewayConfig{}, WithJournal(journal))

	res, _ := backend.Store(ctx, strings.NewReader("orphan"), "o", "")
	_, _ = journal.StartTransaction(wal.OpUpload, uuid.New().String(), model.BackendLocal, res.Locator)

	stats, err := g.Recover(ctx)
	if err != nil {
		t.Fatalf("Recover() вернул ошибку: %v", err)
	}
	if stats.RolledBack != 1 || stats.Cleaned != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if backend.count() != 1 {
		t.Error("байты удалены при ORPHAN_CLEANUP=false")
	}
}

func TestGateway_RecoverMetadataUnavailable(t *testing.T) {
	ctx := context.Background()
	journal := newTestJournal(t)
	repo := &faultyRepo{
		FileRepository: index.New(testLogger()),
		findErr:        fmt.Errorf("%w: нет соединения", model.ErrPersistence),
	}
	g := newTestGateway(t, newMemBackend(model.BackendLocal), repo, GatewayConfig{}, WithJournal(journal))

	_, _ = journal.StartTransaction(wal.OpUpload, uuid.New().String(), model.BackendLocal, "loc")

	stats, err := g.Recover(ctx)
	if err != nil {
		t.Fatalf("Recover() вернул ошибку: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("stats = %+v, ожидался 1 отказ", stats)
	}
	pending, _ := journal.RecoverPending()
	if len(pending) != 1 {
		t.Errorf("транзакция должна остаться pending")
	}
}

func TestGateway_RecoverWithoutJournal(t *testing.T) {
	g := newTestGateway(t, newMemBackend(model.BackendLocal), index.New(testLogger()), GatewayConfig{})
	stats, err := g.Recover(context.Background())
	if err != nil || stats != (RecoveryStats{}) {
		t.Errorf("Recover() = %+v, %v", stats, err)
	}
}

func TestLimitedReader(t *testing.T) {
	lr := newLimitedReader(strings.NewReader("abcdef"), 4)
	data, err := io.ReadAll(lr)
	if !errors.Is(err, errSizeLimit) {
		t.Fatalf("ошибка = %v, ожидалась errSizeLimit", err)
	}
	if string(data) != "abcd" {
		t.Errorf("прочитано %q, ожидалось %q", data, "abcd")
	}
	if !lr.Exceeded() {
		t.Error("Exceeded() = false")
	}

	lr = newLimitedReader(strings.NewReader("abcd"), 4)
	data, err = io.ReadAll(lr)
	if err != nil || string(data) != "abcd" || lr.Exceeded() {
		t.Errorf("ровно лимит: %q, %v, exceeded=%v", data, err, lr.Exceeded())
	}

	lr = newLimitedReader(strings.NewReader("abcd"), math.MaxInt64)
	data, err = io.ReadAll(lr)
	if err != nil || string(data) != "abcd" || lr.Exceeded() {
		t.Errorf("лимит MaxInt64: %q, %v, exceeded=%v", data, err, lr.Exceeded())
	}
}
