package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"filecatalog/internal/blob"
	"filecatalog/internal/config"
	"filecatalog/internal/handler"
	"filecatalog/internal/mimesniff"
	"filecatalog/internal/repository"
	"filecatalog/internal/service"
)

// ensureDatabase создает базу каталога, если ее еще нет.
// Подключается к системной базе postgres, которая существует всегда.
func ensureDatabase(cfg config.DatabaseConfig, logger zerolog.Logger) error {
	system := cfg
	system.Name = "postgres"

	pgDB, err := sqlx.Connect("postgres", system.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		logger.Info().Str("database", cfg.Name).Msg("database does not exist, creating")
		if _, err := pgDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(cfg.Name)); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	return nil
}

func connectWithRetry(cfg config.DatabaseConfig, maxAttempts int, delay time.Duration, logger zerolog.Logger) (*sqlx.DB, error) {
	var err error
	for i := 0; i < maxAttempts; i++ {
		if err = ensureDatabase(cfg, logger); err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", maxAttempts).Msg("database is not ready")
		time.Sleep(delay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to prepare database after %d attempts: %w", maxAttempts, err)
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", cfg.GetDSN())
		if err == nil {
			return db, nil
		}

		logger.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", maxAttempts).Msg("failed to connect to database")
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "filecatalog").Logger()
}

// openCatalog выбирает каталог метаданных по конфигурации.
// Возвращает функцию закрытия соединения.
func openCatalog(cfg config.DatabaseConfig, logger zerolog.Logger) (service.FileCatalog, func(), error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn().Msg("using in-memory catalog, data will be lost on restart")
		return repository.NewMemoryFileRepository(), func() {}, nil
	}

	db, err := connectWithRetry(cfg, 5, 5*time.Second, logger)
	if err != nil {
		return nil, nil, err
	}

	if err := repository.Migrate(cfg.GetURL(), logger); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing database connection")
		}
	}
	return repository.NewFileRepository(db), closeDB, nil
}

// openBlobStore выбирает хранилище содержимого по конфигурации
func openBlobStore(ctx context.Context, cfg config.BlobStoreConfig) (blob.Store, error) {
	switch cfg.Driver {
	case config.DriverFS:
		return blob.NewFSStore(cfg.Root)
	default:
		return blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			UsePathStyle:    cfg.UsePathStyle,
		})
	}
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = ".app.env"
	}

	// Загружаем конфигурацию
	appConfig, err := config.NewConfig(configPath)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(appConfig.Log)

	catalog, closeCatalog, err := openCatalog(appConfig.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open catalog")
	}
	defer closeCatalog()

	blobs, err := openBlobStore(context.Background(), appConfig.BlobStore)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", appConfig.BlobStore.Driver).Msg("failed to open blob store")
	}

	// Инициализация сервисов
	uploadService := service.NewUploadService(catalog, blobs, mimesniff.NewDetector(), logger)
	modificationService := service.NewModificationService(catalog, blobs, logger)
	accessService := service.NewAccessService(catalog, blobs, logger)

	fileHandler := handler.NewFileHandler(
		uploadService,
		modificationService,
		accessService,
		appConfig.Server.BaseURL,
		appConfig.Server.MaxUploadSize,
		logger,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler:           handler.NewRouter(fileHandler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().
			Str("port", appConfig.Server.Port).
			Str("database", appConfig.Database.Driver).
			Str("blob_store", appConfig.BlobStore.Driver).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start HTTP server")
		}
	}()

	// Ожидаем сигнал завершения
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	logger.Info().Msg("server exited properly")
}
