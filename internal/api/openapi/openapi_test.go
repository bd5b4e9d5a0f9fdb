package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	for _, path := range []string{"/api/upload", "/api/files", "/api/files/{id}", "/health"} {
		if doc.Paths.Value(path) == nil {
			t.Errorf("в контракте нет пути %s", path)
		}
	}
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	if rec.Body.Len() != len(Spec()) {
		t.Errorf("тело %d байт, ожидалось %d", rec.Body.Len(), len(Spec()))
	}
}
