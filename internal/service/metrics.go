// metrics.go — Prometheus-метрики StorageGateway.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal — файловые операции по результату (ok, not_found, error).
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_operations_total",
			Help: "Общее количество файловых операций",
		},
		[]string{"operation", "result"},
	)

	// operationDuration — длительность операций StorageGateway.
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fm_operation_duration_seconds",
			Help:    "Длительность файловых операций в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// uploadedBytesTotal — объём успешно загруженных байт.
	uploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fm_uploaded_bytes_total",
			Help: "Общий объём успешно загруженных байт",
		},
	)

	// orphanedBlobsTotal — блобы без записи метаданных.
	// reason: metadata_failure, recovery, delete_io_error;
	// action: cleaned (удалён компенсацией), left (остался в бэкенде).
	orphanedBlobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_orphaned_blobs_total",
			Help: "Количество блобов, оставшихся без записи метаданных",
		},
		[]string{"reason", "action"},
	)
)
