// Пакет errors — конструкторы стандартных ошибок File Manager.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeStorageError     = "STORAGE_ERROR"
	CodePersistenceError = "PERSISTENCE_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// Classify возвращает HTTP статус и код для доменной ошибки.
// FileTooLarge проверяется раньше Validation: она её оборачивает.
func Classify(err error) (int, string) {
	switch {
	case stderrors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case stderrors.Is(err, model.ErrFileTooLarge):
		return http.StatusBadRequest, CodeFileTooLarge
	case stderrors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, CodeValidationError
	case stderrors.Is(err, model.ErrStorageIO):
		return http.StatusInternalServerError, CodeStorageError
	case stderrors.Is(err, model.ErrPersistence):
		return http.StatusInternalServerError, CodePersistenceError
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

// serverMessages — сообщения клиенту для 5xx. Текст причины (ошибки
// драйверов БД, ФС) клиенту не отдаётся, его логирует вызывающий.
var serverMessages = map[string]string{
	CodeStorageError:     "Ошибка хранилища файлов",
	CodePersistenceError: "Хранилище метаданных недоступно",
	CodeInternalError:    "Внутренняя ошибка сервера",
}

// FromError записывает ответ для доменной ошибки. Для 4xx в ответ
// попадает текст ошибки, для 5xx — общее сообщение по коду.
func FromError(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = serverMessages[code]
	}
	WriteError(w, status, code, message)
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// FileTooLarge — 400 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeFileTooLarge, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
