// handler.go — APIHandler реализует generated.ServerInterface,
// делегируя вызовы в отдельные handler'ы по доменам.
package handlers

import (
	"net/http"

	"github.com/bigkaa/goartstore/file-manager/internal/api/generated"
	"github.com/bigkaa/goartstore/file-manager/internal/api/openapi"
)

// APIHandler — единая реализация ServerInterface.
type APIHandler struct {
	files   *FilesHandler
	health  *HealthHandler
	metrics http.Handler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
// metrics — обработчик /metrics (promhttp).
func NewAPIHandler(files *FilesHandler, health *HealthHandler, metrics http.Handler) *APIHandler {
	return &APIHandler{
		files:   files,
		health:  health,
		metrics: metrics,
	}
}

// --- File Operations ---

func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	h.files.UploadFile(w, r)
}

func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	h.files.ListFiles(w, r)
}

func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request, id generated.FileId) {
	h.files.DownloadFile(w, r, id)
}

func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request, id generated.FileId) {
	h.files.DeleteFile(w, r, id)
}

func (h *APIHandler) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	openapi.Handler(w, r)
}

// --- Health ---

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.health.Health(w, r)
}

func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// --- Metrics ---

func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ generated.ServerInterface = (*APIHandler)(nil)
