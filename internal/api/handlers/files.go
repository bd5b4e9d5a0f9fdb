// files.go — HTTP handlers для файловых операций File Manager.
// Upload, List, Download, Delete поверх StorageGateway.
package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/goartstore/file-manager/internal/api/errors"
	"github.com/bigkaa/goartstore/file-manager/internal/api/generated"
	"github.com/bigkaa/goartstore/file-manager/internal/config"
	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/service"
)

// fileField — имя поля multipart с файлом.
const fileField = "file"

// FileGateway — операции StorageGateway, нужные HTTP-слою.
type FileGateway interface {
	Kind() model.BackendKind
	Upload(ctx context.Context, req service.UploadRequest) (*model.FileRecord, error)
	List(ctx context.Context) ([]*model.FileRecord, error)
	Retrieve(ctx context.Context, id string) (*model.FileRecord, io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
}

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	gateway     FileGateway
	baseURL     string
	maxFileSize int64
	bodyLimit   int64
	logger      *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
// baseURL — префикс абсолютных ссылок на скачивание.
func NewFilesHandler(gateway FileGateway, baseURL string, maxFileSize int64, logger *slog.Logger) *FilesHandler {
	bodyLimit := int64(math.MaxInt64)
	if maxFileSize <= config.MaxFileSizeLimit {
		bodyLimit = maxFileSize + config.MultipartOverhead
	}
	return &FilesHandler{
		gateway:     gateway,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxFileSize: maxFileSize,
		bodyLimit:   bodyLimit,
		logger:      logger.With(slog.String("component", "files_handler")),
	}
}

// UploadFile обрабатывает POST /api/upload.
// Multipart form: поле file (обязательно). Часть с файлом читается
// потоком и передаётся в бэкенд без буферизации в памяти.
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.bodyLimit)

	mr, err := r.MultipartReader()
	if err != nil {
		errors.ValidationError(w, "Ожидается multipart/form-data: "+err.Error())
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			errors.ValidationError(w, `Файл не передан (используйте поле "file")`)
			return
		}
		if err != nil {
			if isBodyTooLarge(err) {
				errors.FileTooLarge(w, h.tooLargeMessage())
				return
			}
			errors.ValidationError(w, "Ошибка разбора multipart: "+err.Error())
			return
		}

		if part.FormName() != fileField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		body := &trackingReader{r: part}
		rec, err := h.gateway.Upload(r.Context(), service.UploadRequest{
			Reader:       body,
			OriginalName: part.FileName(),
			MimeType:     contentType,
		})
		_ = part.Close()

		if err != nil {
			if isBodyTooLarge(body.err) {
				errors.FileTooLarge(w, h.tooLargeMessage())
				return
			}
			h.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, generated.UploadResponse{
			Message: generated.UploadResponseMessage(fmt.Sprintf("Uploaded (%s)", rec.BackendKind)),
			File: generated.FileDescriptor{
				Id:           apiFileID(rec.ID),
				Originalname: rec.OriginalName,
				Mimetype:     rec.MimeType,
				Size:         rec.SizeBytes,
				Url:          h.fileURL(rec.ID),
			},
		})
		return
	}
}

// ListFiles обрабатывает GET /api/files.
// Возвращает только файлы настроенного бэкенда, новые первыми.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.gateway.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]generated.ListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, generated.ListItem{
			Id:           apiFileID(rec.ID),
			Originalname: rec.OriginalName,
			Filename:     rec.StoredName(),
			Mimetype:     rec.MimeType,
			Size:         rec.SizeBytes,
			UploadDate:   rec.CreatedAt.UTC(),
			Url:          h.fileURL(rec.ID),
		})
	}

	writeJSON(w, http.StatusOK, generated.ListResponse{
		StorageType: generated.ListResponseStorageType(h.gateway.Kind()),
		Files:       items,
	})
}

// DownloadFile обрабатывает GET /api/files/{id}.
// Seekable поток отдаётся через http.ServeContent (Range, If-Modified-Since),
// остальные копируются в ответ как есть.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request, id generated.FileId) {
	rec, rc, err := h.gateway.Retrieve(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := rec.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition(rec.OriginalName))

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", rec.CreatedAt, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		// Клиент отключился, стриминг прекращается
		h.logger.Debug("Скачивание прервано",
			slog.String("file_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteFile обрабатывает DELETE /api/files/{id}.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request, id generated.FileId) {
	if err := h.gateway.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generated.DeleteResponse{
		Message: generated.DeleteResponseMessage(fmt.Sprintf("Deleted (%s)", h.gateway.Kind())),
		Id:      id,
	})
}

// apiFileID преобразует идентификатор записи в UUID API.
// Идентификаторы создаёт хранилище метаданных, они всегда UUID.
func apiFileID(id string) openapi_types.UUID {
	fileID := openapi_types.UUID{}
	_ = fileID.UnmarshalText([]byte(id))
	return fileID
}

// writeError отвечает ошибкой API. Причину 5xx клиент не видит,
// она пишется в лог.
func (h *FilesHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status, code := errors.Classify(err); status >= http.StatusInternalServerError {
		h.logger.Error("Ошибка обработки запроса",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}
	errors.FromError(w, err)
}

func (h *FilesHandler) fileURL(id string) string {
	return h.baseURL + "/api/files/" + id
}

func (h *FilesHandler) tooLargeMessage() string {
	return fmt.Sprintf("Файл превышает допустимый размер %d байт", h.maxFileSize)
}

// trackingReader запоминает ошибку чтения тела запроса: бэкенд
// оборачивает её через %v, и тип *http.MaxBytesError теряется.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return err != nil && stderrors.As(err, &mbe)
}

// contentDisposition формирует заголовок attachment. Имена вне ASCII
// кодируются по RFC 2231 (filename*=utf-8''...).
func contentDisposition(name string) string {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if v == "" {
		return "attachment"
	}
	return v
}

// writeJSON вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
