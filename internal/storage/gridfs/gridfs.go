// Пакет gridfs — chunked-бэкенд поверх MongoDB GridFS
// (CHUNK_STORE_DRIVER=gridfs). Коллекции {bucket}.files и
// {bucket}.chunks совместимы с любым клиентом GridFS.
package gridfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/juju/mgo/v3"
	"github.com/juju/mgo/v3/bson"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/blob"
)

// Dial подключается к MongoDB. База берётся из пути URI.
func Dial(uri string, timeout time.Duration, logger *slog.Logger) (*mgo.Session, error) {
	session, err := mgo.DialWithTimeout(uri, timeout)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
	}
	session.SetMode(mgo.Strong, true)

	logger.Info("Подключение к MongoDB установлено",
		slog.String("database", session.DB("").Name),
	)
	return session, nil
}

// Store — chunked-бэкенд в GridFS.
type Store struct {
	session   *mgo.Session
	bucket    string
	chunkSize int
	logger    *slog.Logger
}

var _ blob.Backend = (*Store)(nil)

// New создаёт бэкенд. Каждая операция работает на копии session.
func New(session *mgo.Session, bucket string, chunkSize int, logger *slog.Logger) *Store {
	return &Store{
		session:   session,
		bucket:    bucket,
		chunkSize: chunkSize,
		logger:    logger.With(slog.String("component", "gridfs")),
	}
}

// Kind возвращает model.BackendChunked.
func (s *Store) Kind() model.BackendKind { return model.BackendChunked }

// Store записывает поток в новый GridFS-файл. Локатор — hex ObjectId.
// При ошибке чтения файл прерывается через Abort: уже записанные
// чанки удаляются при Close.
func (s *Store) Store(ctx context.Context, r io.Reader, suggestedName, contentType string) (*blob.StoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageIO, err)
	}

	session := s.session.Copy()
	defer session.Close()

	file, err := session.DB("").GridFS(s.bucket).Create(suggestedName)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка создания GridFS-файла: %v", model.ErrStorageIO, err)
	}
	file.SetContentType(contentType)
	if s.chunkSize > 0 {
		file.SetChunkSize(s.chunkSize)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Abort()
		_ = file.Close()
		return nil, fmt.Errorf("%w: ошибка записи в GridFS: %v", model.ErrStorageIO, err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("%w: ошибка завершения GridFS-файла: %v", model.ErrStorageIO, err)
	}

	id, ok := file.Id().(bson.ObjectId)
	if !ok {
		return nil, fmt.Errorf("%w: неожиданный тип id GridFS-файла %T", model.ErrStorageIO, file.Id())
	}

	s.logger.Debug("GridFS-файл записан",
		slog.String("blob_id", id.Hex()),
		slog.Int64("size", file.Size()),
	)
	return &blob.StoreResult{Locator: id.Hex(), Size: file.Size()}, nil
}

// Open открывает GridFS-файл на чтение. Поток реализует io.Seeker.
func (s *Store) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	if !bson.IsObjectIdHex(locator) {
		return nil, fmt.Errorf("%w: блоб %s", model.ErrNotFound, locator)
	}

	session := s.session.Copy()
	file, err := session.DB("").GridFS(s.bucket).OpenId(bson.ObjectIdHex(locator))
	if err != nil {
		session.Close()
		if errors.Is(err, mgo.ErrNotFound) {
			return nil, fmt.Errorf("%w: блоб %s", model.ErrNotFound, locator)
		}
		return nil, fmt.Errorf("%w: ошибка открытия блоба %s: %v", model.ErrStorageIO, locator, err)
	}
	return &gridReader{GridFile: file, session: session}, nil
}

// Delete удаляет файл и его чанки.
func (s *Store) Delete(_ context.Context, locator string) error {
	if !bson.IsObjectIdHex(locator) {
		return fmt.Errorf("%w: блоб %s", model.ErrNotFound, locator)
	}

	session := s.session.Copy()
	defer session.Close()

	err := session.DB("").GridFS(s.bucket).RemoveId(bson.ObjectIdHex(locator))
	if err != nil {
		if errors.Is(err, mgo.ErrNotFound) {
			return fmt.Errorf("%w: блоб %s", model.ErrNotFound, locator)
		}
		return fmt.Errorf("%w: ошибка удаления блоба %s: %v", model.ErrStorageIO, locator, err)
	}
	return nil
}

// gridReader закрывает копию session вместе с файлом.
type gridReader struct {
	*mgo.GridFile
	session *mgo.Session
}

func (g *gridReader) Close() error {
	err := g.GridFile.Close()
	g.session.Close()
	return err
}

// ReadinessChecker — проверка готовности MongoDB для health endpoint.
type ReadinessChecker struct {
	session *mgo.Session
}

// NewReadinessChecker создаёт проверку готовности MongoDB.
func NewReadinessChecker(session *mgo.Session) *ReadinessChecker {
	return &ReadinessChecker{session: session}
}

// Name возвращает имя проверки в ответе /health/ready.
func (c *ReadinessChecker) Name() string { return "mongodb" }

// CheckReady выполняет ping MongoDB на копии session.
func (c *ReadinessChecker) CheckReady(_ context.Context) (status string, message string) {
	session := c.session.Copy()
	defer session.Close()
	if err := session.Ping(); err != nil {
		return "fail", fmt.Sprintf("MongoDB недоступна: %v", err)
	}
	return "ok", "подключение активно"
}
