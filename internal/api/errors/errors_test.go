package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("%w: x", model.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"validation", fmt.Errorf("%w: x", model.ErrValidation), http.StatusBadRequest, CodeValidationError},
		{"too large", fmt.Errorf("%w: x", model.ErrFileTooLarge), http.StatusBadRequest, CodeFileTooLarge},
		{"storage", fmt.Errorf("%w: x", model.ErrStorageIO), http.StatusInternalServerError, CodeStorageError},
		{"persistence", fmt.Errorf("%w: x", model.ErrPersistence), http.StatusInternalServerError, CodePersistenceError},
		{"unknown", fmt.Errorf("x"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Classify(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("Classify() = %d %s, ожидалось %d %s", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestFromError_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, fmt.Errorf("%w: файл abc", model.ErrNotFound))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("тело не JSON: %v", err)
	}
	if body.Error.Code != CodeNotFound || body.Error.Message == "" {
		t.Errorf("тело = %+v", body)
	}
}

func TestFromError_ServerErrorsHideCause(t *testing.T) {
	cause := "dial tcp 10.0.0.5:5432: connect: connection refused"

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"storage", fmt.Errorf("%w: open /data/uploads/a.txt: %s", model.ErrStorageIO, cause), CodeStorageError},
		{"persistence", fmt.Errorf("%w: %s", model.ErrPersistence, cause), CodePersistenceError},
		{"internal", fmt.Errorf("%s", cause), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromError(rec, tt.err)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("статус = %d", rec.Code)
			}
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("тело не JSON: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, ожидался %q", body.Error.Code, tt.wantCode)
			}
			if body.Error.Message == "" || strings.Contains(body.Error.Message, "10.0.0.5") || strings.Contains(body.Error.Message, "/data/") {
				t.Errorf("message = %q раскрывает причину", body.Error.Message)
			}
		})
	}
}
