package main

import (
	"github.com/nonsir1/Roomly/internal/health"
	"github.com/nonsir1/Roomly/internal/settings/handler"
	"github.com/nonsir1/Roomly/internal/settings/repository"
	"github.com/nonsir1/Roomly/internal/settings/service"
	"github.com/nonsir1/Roomly/pkg/app"
	"github.com/nonsir1/Roomly/pkg/config"
)

const ServiceName = "settings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Settings service")
	settingService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewSettingHandler(settingService, cfg.Log),
		health.NewHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) service.SettingService {
	settingRepo := repository.NewMongoSettingRepository(cfg)
	settingService := service.NewSettingService(settingRepo, cfg)

	cfg.Log.Info("Setting service initialized", "database", cfg.MongoDatabaseName)
	return settingService
}
