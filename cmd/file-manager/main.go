// Точка входа File Manager — сервиса загрузки, хранения и выдачи файлов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/juju/mgo/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/bigkaa/goartstore/file-manager/internal/api/handlers"
	"github.com/bigkaa/goartstore/file-manager/internal/config"
	"github.com/bigkaa/goartstore/file-manager/internal/database"
	"github.com/bigkaa/goartstore/file-manager/internal/domain/model"
	"github.com/bigkaa/goartstore/file-manager/internal/repository"
	"github.com/bigkaa/goartstore/file-manager/internal/server"
	"github.com/bigkaa/goartstore/file-manager/internal/service"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/blob"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/chunkstore"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/filestore"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/gridfs"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/index"
	"github.com/bigkaa/goartstore/file-manager/internal/storage/wal"
)

// mongoDialTimeout — таймаут подключения к MongoDB при старте.
const mongoDialTimeout = 10 * time.Second

// resources — соединения с явным жизненным циклом: открываются до
// приёма запросов, закрываются после остановки HTTP-сервера.
type resources struct {
	pool     *pgxpool.Pool
	sqliteDB *gorm.DB
	mongo    *mgo.Session
	checkers []handlers.ReadinessChecker
}

func (r *resources) close(logger *slog.Logger) {
	if r.mongo != nil {
		r.mongo.Close()
	}
	if r.sqliteDB != nil {
		if sqlDB, err := r.sqliteDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if r.pool != nil {
		r.pool.Close()
	}
	logger.Info("Соединения закрыты")
}

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("File Manager запускается",
		slog.String("version", config.Version),
		slog.String("storage_type", string(cfg.StorageType)),
		slog.String("metadata_driver", cfg.MetadataDriver),
		slog.Int("port", cfg.Port),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("File Manager остановлен с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("File Manager остановлен")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	res := &resources{}
	defer res.close(logger)

	// 1. PostgreSQL: метаданные и/или chunked-бэкенд
	if cfg.UsesPostgres() {
		if err := database.Migrate(cfg, logger); err != nil {
			return err
		}
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			return err
		}
		res.pool = pool
		res.checkers = append(res.checkers, database.NewPoolReadinessChecker(pool))
	}

	// 2. Хранилище метаданных
	repo, err := openRepository(cfg, res, logger)
	if err != nil {
		return err
	}
	if cfg.MetadataCacheSize > 0 {
		repo = service.NewCachedRepository(repo, cfg.MetadataCacheSize, cfg.MetadataCacheTTL)
	}

	// 3. Бэкенд байтов, фиксирован на время жизни процесса
	backend, err := openBackend(cfg, res, logger)
	if err != nil {
		return err
	}

	// 4. StorageGateway и журнал
	var opts []service.GatewayOption
	if cfg.WALDir != "" {
		journal, err := wal.New(cfg.WALDir, logger)
		if err != nil {
			return fmt.Errorf("ошибка инициализации WAL: %w", err)
		}
		opts = append(opts, service.WithJournal(journal))
	}

	gateway := service.NewGateway(backend, repo, service.GatewayConfig{
		MaxFileSize:   cfg.MaxFileSize,
		OrphanCleanup: cfg.OrphanCleanup,
	}, logger, opts...)

	// Незавершённые операции прошлого запуска — до приёма запросов
	if _, err := gateway.Recover(ctx); err != nil {
		return fmt.Errorf("ошибка восстановления журнала: %w", err)
	}

	// 5. topologymetrics — мониторинг PostgreSQL
	if res.pool != nil {
		dephealthSvc, err := service.NewDephealthService(
			cfg.ServiceID,
			cfg.DephealthGroup,
			stdlib.OpenDBFromPool(res.pool),
			cfg.DatabaseURL(),
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
		} else if err := dephealthSvc.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("service_id", cfg.ServiceID),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 6. HTTP
	dataDir := ""
	if cfg.StorageType == model.BackendLocal {
		dataDir = cfg.DataDir
	}
	filesHandler := handlers.NewFilesHandler(gateway, cfg.BaseURL, cfg.MaxFileSize, logger)
	healthHandler := handlers.NewHealthHandler(dataDir, cfg.WALDir, res.checkers...)

	apiHandler := handlers.NewAPIHandler(filesHandler, healthHandler, promhttp.Handler())

	srv := server.New(cfg, logger, server.NewRouter(logger, apiHandler))
	return srv.Run()
}

// openRepository открывает хранилище метаданных по METADATA_DRIVER.
func openRepository(cfg *config.Config, res *resources, logger *slog.Logger) (repository.FileRepository, error) {
	switch cfg.MetadataDriver {
	case config.MetadataPostgres:
		return repository.NewPostgresFileRepository(res.pool), nil
	case config.MetadataSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		res.sqliteDB = db
		res.checkers = append(res.checkers, database.NewSQLiteReadinessChecker(db))
		return repository.NewGormFileRepository(db), nil
	default:
		logger.Warn("Метаданные хранятся в памяти и теряются при перезапуске")
		return index.New(logger), nil
	}
}

// openBackend создаёт бэкенд байтов по STORAGE_TYPE и CHUNK_STORE_DRIVER.
func openBackend(cfg *config.Config, res *resources, logger *slog.Logger) (blob.Backend, error) {
	if cfg.StorageType == model.BackendLocal {
		store, err := filestore.New(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		// Временные файлы прерванных загрузок прошлого запуска
		if removed, err := store.CleanTemp(); err != nil {
			logger.Warn("Ошибка очистки временных файлов", slog.String("error", err.Error()))
		} else if removed > 0 {
			logger.Info("Удалены временные файлы прерванных загрузок", slog.Int("count", removed))
		}
		return store, nil
	}

	if cfg.UsesGridFS() {
		session, err := gridfs.Dial(cfg.MongoURI, mongoDialTimeout, logger)
		if err != nil {
			return nil, err
		}
		res.mongo = session
		res.checkers = append(res.checkers, gridfs.NewReadinessChecker(session))
		return gridfs.New(session, cfg.GridFSBucket, cfg.ChunkSize, logger), nil
	}

	return chunkstore.New(res.pool, cfg.ChunkSize, logger), nil
}
