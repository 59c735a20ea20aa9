package main

import (
	"github.com/nonsir1/Roomly/internal/bookings/events"
	"github.com/nonsir1/Roomly/internal/bookings/handler"
	"github.com/nonsir1/Roomly/internal/bookings/repository"
	"github.com/nonsir1/Roomly/internal/bookings/service"
	"github.com/nonsir1/Roomly/internal/bookings/validator"
	"github.com/nonsir1/Roomly/internal/health"
	"github.com/nonsir1/Roomly/pkg/app"
	"github.com/nonsir1/Roomly/pkg/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")
	bookingService, publisher := initServices(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log),
		health.NewHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.BookingService, *events.Publisher) {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	lockRepo := repository.NewBookingLockRepository(cfg)

	publisher, err := events.NewPublisher(cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}

	bookingService := service.NewBookingService(
		bookingRepo,
		lockRepo,
		bookingValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService, publisher
}
