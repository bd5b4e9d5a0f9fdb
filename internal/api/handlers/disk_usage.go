// disk_usage.go — получение информации об ёмкости диска.
// Платформозависимый код для Unix-подобных систем.
package handlers

import (
	"fmt"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// diskTotalBytes — ёмкость файловой системы DATA_DIR.
	diskTotalBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fm_disk_total_bytes",
		Help: "Ёмкость файловой системы директории данных в байтах",
	})

	// diskAvailableBytes — свободное место в DATA_DIR.
	diskAvailableBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fm_disk_available_bytes",
		Help: "Свободное место в директории данных в байтах",
	})
)

// getDiskUsage возвращает информацию о дисковом пространстве в директории.
// Возвращает total, used, available в байтах.
func getDiskUsage(path string) (total, used, available int64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, 0, fmt.Errorf("ошибка statfs %s: %w", path, err)
	}

	total = int64(stat.Blocks) * int64(stat.Bsize)
	available = int64(stat.Bavail) * int64(stat.Bsize)
	used = total - available

	return total, used, available, nil
}

func updateDiskMetrics(total, available int64) {
	diskTotalBytes.Set(float64(total))
	diskAvailableBytes.Set(float64(available))
}
