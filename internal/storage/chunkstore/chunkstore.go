// Пакет chunkstore — chunked-бэкенд поверх PostgreSQL.
//
// Блоб хранится как заголовок в таблице blobs и последовательность
// чанков фиксированного размера в blob_chunks (последний может быть
// короче). Запись выполняется в одной транзакции: при ошибке посреди
// потока частичные чанки не остаются.
package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/blob"
)

// DefaultChunkSize — размер чанка по умолчанию (255 КБ, как в GridFS).
const DefaultChunkSize = 255 * 1024

// DB — подмножество *pgxpool.Pool, нужное бэкенду.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store — chunked-бэкенд в PostgreSQL.
type Store struct {
	db        DB
	chunkSize int
	logger    *slog.Logger
}

var _ blob.Backend = (*Store)(nil)

// New создаёт бэкенд. chunkSize <= 0 заменяется DefaultChunkSize.
func New(db DB, chunkSize int, logger *slog.Logger) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Store{
		db:        db,
		chunkSize: chunkSize,
		logger:    logger.With(slog.String("component", "chunkstore")),
	}
}

// Kind возвращает model.BackendChunked.
func (s *Store) Kind() model.BackendKind { return model.BackendChunked }

// ChunkSize возвращает размер чанка.
func (s *Store) ChunkSize() int { return s.chunkSize }

// Store читает поток чанками и записывает их в одной транзакции.
// Локатор — UUID блоба.
func (s *Store) Store(ctx context.Context, r io.Reader, suggestedName, contentType string) (*blob.StoreResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка начала транзакции: %v", model.ErrStorageIO, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	id := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO blobs (id, filename, content_type, chunk_size) VALUES ($1, $2, $3, $4)`,
		id, suggestedName, contentType, s.chunkSize,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка создания блоба: %v", model.ErrStorageIO, err)
	}

	buf := make([]byte, s.chunkSize)
	var (
		total int64
		n     int
	)
	for chunk := 0; ; chunk++ {
		n, err = io.ReadFull(r, buf)
		if n > 0 {
			if _, execErr := tx.Exec(ctx,
				`INSERT INTO blob_chunks (blob_id, n, data) VALUES ($1, $2, $3)`,
				id, chunk, buf[:n],
			); execErr != nil {
				return nil, fmt.Errorf("%w: ошибка записи чанка %d: %v", model.ErrStorageIO, chunk, execErr)
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: ошибка чтения потока: %v", model.ErrStorageIO, err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE blobs SET length = $2 WHERE id = $1`, id, total); err != nil {
		return nil, fmt.Errorf("%w: ошибка обновления длины блоба: %v", model.ErrStorageIO, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: ошибка фиксации транзакции: %v", model.ErrStorageIO, err)
	}

	s.logger.Debug("Блоб записан",
		slog.String("blob_id", id),
		slog.Int64("size", total),
	)
	return &blob.StoreResult{Locator: id, Size: total}, nil
}

// Open возвращает ленивый поток: чанки читаются из базы по мере
// чтения. Поток реализует io.Seeker.
func (s *Store) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if _, err := uuid.Parse(locator); err != nil {
		return nil, fmt.Errorf("%w: блоб %s", model.ErrNotFound, locator)
	}

	var (
		length    int64
		chunkSize int
	)
	err := s.db.QueryRow(ctx,
		`SELECT length, chunk_size FROM blobs WHERE id = $1`, locator,
	).Scan(&length, &chunkSize)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: блоб %s", model.ErrNotFound, locator)
		}
		return nil, fmt.Errorf("%w: ошибка чтения блоба %s: %v", model.ErrStorageIO, locator, err)
	}

	return &chunkReader{
		ctx:       ctx,
		db:        s.db,
		id:        locator,
		length:    length,
		chunkSize: int64(chunkSize),
		cachedN:   -1,
	}, nil
}

// Delete удаляет блоб; чанки удаляются каскадно.
func (s *Store) Delete(ctx context.Context, locator string) error {
	if _, err := uuid.Parse(locator); err != nil {
		return fmt.Errorf("%w: блоб %s", model.ErrNotFound, locator)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM blobs WHERE id = $1`, locator)
	if err != nil {
		return fmt.Errorf("%w: ошибка удаления блоба %s: %v", model.ErrStorageIO, locator, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: блоб %s", model.ErrNotFound, locator)
	}
	return nil
}

// chunkReader — io.ReadSeekCloser поверх blob_chunks.
// В памяти держится не больше одного чанка.
type chunkReader struct {
	ctx       context.Context
	db        DB
	id        string
	length    int64
	chunkSize int64
	offset    int64

	cachedN    int64
	cachedData []byte
}

func (cr *chunkReader) Read(p []byte) (int, error) {
	if cr.offset >= cr.length {
		return 0, io.EOF
	}

	n := cr.offset / cr.chunkSize
	if n != cr.cachedN {
		var data []byte
		err := cr.db.QueryRow(cr.ctx,
			`SELECT data FROM blob_chunks WHERE blob_id = $1 AND n = $2`, cr.id, n,
		).Scan(&data)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("%w: блоб %s: отсутствует чанк %d", model.ErrStorageIO, cr.id, n)
			}
			return 0, fmt.Errorf("%w: ошибка чтения чанка %d: %v", model.ErrStorageIO, n, err)
		}
		cr.cachedN = n
		cr.cachedData = data
	}

	pos := cr.offset - n*cr.chunkSize
	if pos >= int64(len(cr.cachedData)) {
		return 0, fmt.Errorf("%w: блоб %s: чанк %d короче ожидаемого", model.ErrStorageIO, cr.id, n)
	}
	copied := copy(p, cr.cachedData[pos:])
	cr.offset += int64(copied)
	return copied, nil
}

func (cr *chunkReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = cr.offset + offset
	case io.SeekEnd:
		abs = cr.length + offset
	default:
		return 0, errors.New("chunkstore: некорректный whence")
	}
	if abs < 0 {
		return 0, errors.New("chunkstore: отрицательная позиция")
	}
	cr.offset = abs
	return abs, nil
}

func (cr *chunkReader) Close() error {
	cr.cachedData = nil
	return nil
}
