package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/file-manager/internal/api/handlers"
	"github.com/bigkaa/goartstore/file-manager/internal/api/openapi"
	"github.com/bigkaa/goartstore/file-manager/internal/service"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/filestore"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/index"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// contract — проверка ответов сервера по OpenAPI контракту.
type contract struct {
	t      *testing.T
	router routers.Router
}

func newContract(t *testing.T) *contract {
	t.Helper()

	doc, err := openapi.Load(context.Background())
	if err != nil {
		t.Fatalf("openapi.Load: %v", err)
	}
	// Сопоставление только по пути, без хоста из servers
	doc.Servers = openapi3.Servers{}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		t.Fatalf("legacy.NewRouter: %v", err)
	}
	return &contract{t: t, router: router}
}

// check валидирует JSON-ответ на запрос req.
func (c *contract) check(req *http.Request, rec *httptest.ResponseRecorder) {
	c.t.Helper()

	route, params, err := c.router.FindRoute(req)
	if err != nil {
		c.t.Fatalf("маршрут %s %s не описан в контракте: %v", req.Method, req.URL.Path, err)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: params,
			Route:      route,
		},
		Status: rec.Code,
		Header: rec.Header(),
		Body:   io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
	}
	if err := openapi3filter.ValidateResponse(context.Background(), input); err != nil {
		c.t.Errorf("%s %s (%d) не соответствует контракту: %v", req.Method, req.URL.Path, rec.Code, err)
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	dataDir := t.TempDir()
	store, err := filestore.New(dataDir)
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}
	gw := service.NewGateway(store, index.New(testLogger()), service.GatewayConfig{MaxFileSize: 1024}, testLogger())

	files := handlers.NewFilesHandler(gw, "http://localhost:5000", 1024, testLogger())
	health := handlers.NewHealthHandler(dataDir, "")
	return NewRouter(testLogger(), handlers.NewAPIHandler(files, health, promhttp.Handler()))
}

func uploadRequest(t *testing.T, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "a.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestContract_FileLifecycle(t *testing.T) {
	srv := newTestServer(t)
	c := newContract(t)

	req := uploadRequest(t, []byte("0123456789"))
	rec := serve(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload статус = %d: %s", rec.Code, rec.Body.String())
	}
	c.check(req, rec)

	var up struct {
		File struct {
			ID string `json:"id"`
		} `json:"file"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &up); err != nil {
		t.Fatalf("ответ upload: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	c.check(req, serve(srv, req))

	req = httptest.NewRequest(http.MethodDelete, "/api/files/"+up.File.ID, nil)
	rec = serve(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete статус = %d", rec.Code)
	}
	c.check(req, rec)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req = httptest.NewRequest(method, "/api/files/"+up.File.ID, nil)
		rec = serve(srv, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s после удаления: статус = %d", method, rec.Code)
		}
		c.check(req, rec)
	}
}

func TestContract_UploadErrors(t *testing.T) {
	srv := newTestServer(t)
	c := newContract(t)

	// Превышение лимита
	req := uploadRequest(t, bytes.Repeat([]byte("x"), 1025))
	rec := serve(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидался 400", rec.Code)
	}
	c.check(req, rec)

	// Не multipart
	req = httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader([]byte("x")))
	req.Header.Set("Content-Type", "text/plain")
	rec = serve(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидался 400", rec.Code)
	}
	c.check(req, rec)
}

func TestContract_Health(t *testing.T) {
	srv := newTestServer(t)
	c := newContract(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := serve(srv, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: статус = %d", path, rec.Code)
		}
		c.check(req, rec)
	}
}

func TestRouter_ServiceEndpoints(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{"метрики", http.MethodGet, "/metrics", http.StatusOK},
		{"контракт", http.MethodGet, "/api/openapi.yaml", http.StatusOK},
		{"неизвестный маршрут", http.MethodGet, "/api/unknown", http.StatusNotFound},
		{"неподдерживаемый метод", http.MethodPut, "/api/files", http.StatusMethodNotAllowed},
		{"не-UUID идентификатор", http.MethodGet, "/api/files/не-uuid", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.wantCode)
			}
		})
	}
}
