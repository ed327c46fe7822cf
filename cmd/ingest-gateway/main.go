// Точка входа ingest-gateway — приёма отчётов и файлов от устройств.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/api/handlers"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/api/middleware"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/auth"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/config"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/server"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/service"
	"github.com/bigkaa/goartstore/ingest-gateway/internal/storage/filestore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("ingest-gateway запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_root", cfg.StorageRoot),
		slog.Bool("tls", cfg.TLSEnabled()),
		slog.Bool("admin_api", cfg.AdminAPIEnabled()),
	)

	// --- Инициализация компонентов ---

	// 1. Учётные данные устройств
	devices, err := loadDevices(cfg, logger)
	if err != nil {
		logger.Error("Ошибка загрузки учётных данных", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Файловое хранилище
	store, err := filestore.New(cfg.StorageRoot, filestore.Options{
		DirCacheSize: cfg.DirCacheSize,
		DirCacheTTL:  cfg.DirCacheTTL,
	})
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Сервисы
	commandRouter := service.NewCommandRouter(logger)
	uploadSvc := service.NewUploadService(devices, store, logger)

	// 4. Фоновые процессы
	ctx := context.Background()

	// 4.1 Janitor — удаление брошенных временных файлов
	janitorSvc := service.NewJanitorService(store, cfg.JanitorInterval, cfg.TempMaxAge, logger)
	janitorSvc.Start(ctx)

	// 4.2 JWT и topologymetrics — только при настроенном JWKS
	var (
		jwtAuth      server.JWTAuthProvider
		jwtCloser    *middleware.JWTAuth
		dephealthSvc *service.DephealthService
		deps         handlers.DependencyReporter
	)
	if cfg.AdminAPIEnabled() {
		jwtMiddleware, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSUrl,
			CACertPath:      cfg.JWKSCACert,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			JWTLeeway:       cfg.JWTLeeway,
		}, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT", slog.String("error", err.Error()))
			os.Exit(1)
		}
		jwtAuth = jwtMiddleware
		jwtCloser = jwtMiddleware
		logger.Info("JWT аутентификация настроена",
			slog.String("jwks_url", cfg.JWKSUrl),
		)

		dephealthSvc, err = service.NewDephealthService(
			resolveServiceID(cfg.ServiceID),
			cfg.DephealthGroup,
			cfg.JWKSUrl,
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
			dephealthSvc = nil
		} else {
			deps = dephealthSvc
		}
	} else {
		logger.Info("IG_JWKS_URL не задан, административный API отключён")
	}

	// 5. Handlers
	apiHandler := handlers.NewAPIHandler(
		handlers.NewReportHandler(commandRouter),
		handlers.NewUploadHandler(uploadSvc, cfg.MaxUploadSize),
		handlers.NewHelloHandler(),
		handlers.NewFilesHandler(store, logger),
		handlers.NewHealthHandler(store, deps, logger),
		server.NewMetricsHandler(),
	)

	// 6. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)

	runErr := srv.Run()

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	janitorSvc.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if jwtCloser != nil {
		jwtCloser.Close()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	logger.Info("ingest-gateway остановлен")
}

// loadDevices загружает allow-list устройств из IG_CREDENTIALS_FILE.
// Без файла используется одно тестовое устройство.
func loadDevices(cfg *config.Config, logger *slog.Logger) (*auth.StaticStore, error) {
	if cfg.CredentialsFile == "" {
		logger.Warn("IG_CREDENTIALS_FILE не задан, используется тестовое устройство",
			slog.String("device_id", auth.DefaultDeviceID),
		)
		return auth.Default(), nil
	}

	devices, err := auth.LoadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Учётные данные устройств загружены",
		slog.String("file", cfg.CredentialsFile),
		slog.Int("devices", devices.Len()),
	)
	return devices, nil
}
