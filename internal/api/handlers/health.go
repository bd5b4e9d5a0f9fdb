// health.go — обработчики health endpoints для Kubernetes (liveness, readiness).
package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bigkaa/goartstore/file-manager/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// serviceName — имя сервиса в ответах health.
const serviceName = "file-manager"

// readyTimeout — таймаут проверок зависимостей в /health/ready.
const readyTimeout = 3 * time.Second

// ReadinessChecker — проверка готовности зависимости
// (PostgreSQL, SQLite, MongoDB).
type ReadinessChecker interface {
	Name() string
	CheckReady(ctx context.Context) (status string, message string)
}

// HealthHandler реализует health endpoints: /health, /health/live, /health/ready.
type HealthHandler struct {
	version string
	// dataDir — директория локального бэкенда (пусто для chunked)
	dataDir string
	// walDir — директория журнала (пусто, если журнал выключен)
	walDir string
	// checkers — проверки внешних зависимостей
	checkers []ReadinessChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(dataDir, walDir string, checkers ...ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		version:  config.Version,
		dataDir:  dataDir,
		walDir:   walDir,
		checkers: checkers,
	}
}

// Health обрабатывает GET /health — простой ответ {"status":"ok"}.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: директорию данных, директорию WAL, внешние зависимости.
// Недоступный WAL — degraded, остальное — fail (503).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	checks := map[string]any{}

	if h.dataDir != "" {
		fsCheck := h.checkFilesystem()
		checks["filesystem"] = fsCheck
		if fsCheck["status"] != "ok" {
			overallStatus = statusFail
			httpStatus = http.StatusServiceUnavailable
		}
	}

	if h.walDir != "" {
		walCheck := checkWritable(h.walDir, "Директория WAL недоступна для записи: ")
		checks["wal"] = walCheck
		if walCheck["status"] != "ok" && overallStatus != statusFail {
			overallStatus = "degraded"
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	for _, c := range h.checkers {
		status, message := c.CheckReady(ctx)
		check := map[string]any{"status": status}
		if message != "" {
			check["message"] = message
		}
		checks[c.Name()] = check
		if status != "ok" {
			overallStatus = statusFail
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
		"checks":    checks,
	})
}

// checkFilesystem проверяет запись в директорию данных и свободное место.
func (h *HealthHandler) checkFilesystem() map[string]any {
	check := checkWritable(h.dataDir, "Директория данных недоступна для записи: ")
	if check["status"] != "ok" {
		return check
	}

	total, used, available, err := getDiskUsage(h.dataDir)
	if err != nil {
		return check
	}
	updateDiskMetrics(total, available)
	check["total_bytes"] = total
	check["used_bytes"] = used
	check["available_bytes"] = available
	return check
}

// checkWritable проверяет доступность директории на запись.
func checkWritable(dir, failPrefix string) map[string]any {
	testFile := filepath.Join(dir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": failPrefix + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{
		"status": "ok",
	}
}
