// Package main запускает HTTP-сервер сервиса коротких ссылок
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vportn/golinks/internal/analytics"
	"github.com/vportn/golinks/internal/app"
	"github.com/vportn/golinks/internal/cache"
	"github.com/vportn/golinks/internal/config"
	"github.com/vportn/golinks/internal/log"
	"github.com/vportn/golinks/internal/middleware"
	"github.com/vportn/golinks/internal/repository"
	"github.com/vportn/golinks/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	logger := log.NewLogger(cfg.Debug)
	defer func() {
		_ = logger.Sync()
	}()

	db, err := app.NewDB(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Хранилище выбирается по конфигурации: Postgres, файл или память
	var repo repository.Repository
	switch {
	case db != nil:
		repo, err = repository.NewPostgresRepository(db, logger)
		if err != nil {
			logger.Fatal("Failed to create postgres repository", zap.Error(err))
		}
		logger.Info("Using postgres repository")
	case cfg.FileStoragePath != "":
		repo, err = repository.NewFileRepository(cfg.FileStoragePath, logger)
		if err != nil {
			logger.Fatal("Failed to create file repository", zap.Error(err))
		}
		logger.Info("Using file repository", zap.String("path", cfg.FileStoragePath))
	default:
		repo = repository.NewMemoryRepository()
		logger.Info("Using in-memory repository")
	}

	linkCache, err := cache.New(cfg.RedisAddr, logger)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	if linkCache != nil {
		logger.Info("Using redis link cache", zap.String("addr", cfg.RedisAddr))
	}

	geo := analytics.NewGeoClient(cfg.GeoAPIURL, cfg.GeoTimeout, logger)
	recorder := analytics.NewRecorder(repo, geo, cfg.IPHashSalt, logger)
	svc := service.NewService(repo, linkCache, recorder, cfg.BaseURL, cfg.JWTSecret, logger)
	appInstance := app.NewApp(svc, db, logger)

	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.GzipMiddleware)

	r.Get("/ping", appInstance.HandlePing)
	r.Get("/health", appInstance.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.TrustedSubnetMiddleware(cfg.TrustedSubnet, logger))
		r.Get("/api/internal/stats", appInstance.HandleInternalStats)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(svc, cfg, logger))

		r.Get("/{shortCode}", appInstance.HandleRedirect)

		r.Post("/api/links", appInstance.HandleCreateLink)
		r.Get("/api/links", appInstance.HandleGetLinks)
		r.Get("/api/links/{id}", appInstance.HandleGetLink)
		r.Put("/api/links/{id}", appInstance.HandleUpdateLink)
		r.Delete("/api/links/{id}", appInstance.HandleDeleteLink)

		r.Get("/api/analytics/dashboard-stats", appInstance.HandleDashboardStats)
		r.Get("/api/analytics/{linkId}", appInstance.HandleLinkEvents)
		r.Get("/api/analytics/{linkId}/summary", appInstance.HandleLinkSummary)
	})

	logger.Info("Starting server", zap.String("addr", cfg.RunAddr), zap.String("base_url", cfg.BaseURL))
	if err := http.ListenAndServe(cfg.RunAddr, r); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
