package main

import (
	"bookit/internal/audit"
	"bookit/internal/authz"
	availabilityhandler "bookit/internal/availability/handler"
	availabilityrepo "bookit/internal/availability/repository"
	availabilityservice "bookit/internal/availability/service"
	availabilityvalidator "bookit/internal/availability/validator"
	"bookit/internal/bookings/handler"
	"bookit/internal/bookings/repository"
	"bookit/internal/bookings/service"
	"bookit/internal/bookings/validator"
	"bookit/internal/conflict"
	"bookit/internal/health"
	"bookit/internal/notifications/publisher"
	resourcerepo "bookit/internal/resources/repository"
	"bookit/pkg/app"
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	"bookit/pkg/kafka"
	kafkaconfig "bookit/pkg/kafka/config"
	kafkamiddleware "bookit/pkg/kafka/middleware"
	"bookit/pkg/model"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	cfg.Log.Info("Starting Bookings service")

	producer, metrics := initProducer(cfg, kafkaCfg)
	bookingHandler, availabilityHandler := initServices(cfg, publisher.NewKafkaNotifier(producer, ServiceName, kafkaCfg.PublishTimeout, cfg.Log))

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(map[string]health.Check{
		"mongo": health.MongoCheck(cfg.Client.Mongo),
		"kafka": health.KafkaCheck(kafkaCfg.Brokers),
	}, bookingHandler, availabilityHandler)
	serverApp.OnShutdown(func() error {
		cfg.Log.Info("Notification producer metrics", metrics.Snapshot().LogValues()...)
		return producer.Close()
	})
	serverApp.OnShutdown(func() error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}

func initProducer(cfg *config.Config, kafkaCfg *kafkaconfig.Config) (*kafka.Producer, *kafkamiddleware.Metrics) {
	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationsTopic, cfg.NotificationsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification producer", "error", err)
	}

	metrics := kafkamiddleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.Producer())
	}
	return producer, metrics
}

func initServices(cfg *config.Config, notifier service.Notifier) (*handler.BookingHandler, *availabilityhandler.AvailabilityHandler) {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	recorder := audit.NewRecorder(audit.NewMongoAuditRepository(cfg), cfg.Log)
	locks := mongotx.NewLockRepository(db)
	resources := resourcerepo.NewMongoResourceRepository(cfg)
	authorizer := authz.NewAuthorizer(nil)

	availabilityService := availabilityservice.NewAvailabilityService(
		availabilityrepo.NewAuditedAvailabilityRepository(
			availabilityrepo.NewMongoAvailabilityRepository(cfg),
			recorder.For(model.EntityAvailabilityRule),
		),
		locks,
		resources,
		recorder,
		authorizer,
		availabilityvalidator.NewAvailabilityValidator(cfg.Log),
		cfg,
	)

	bookingRepo := repository.NewAuditedBookingRepository(
		repository.NewMongoBookingRepository(cfg),
		recorder.For(model.EntityBooking),
	)
	approvalRepo := repository.NewAuditedApprovalRepository(
		repository.NewMongoApprovalRepository(cfg),
		recorder.For(model.EntityBookingApproval),
	)

	bookingService := service.NewBookingService(
		bookingRepo,
		approvalRepo,
		locks,
		resources,
		conflict.NewDetector(bookingRepo),
		availabilityService,
		notifier,
		recorder,
		authorizer,
		validator.NewBookingValidator(cfg.Log, cfg.MinBookingPriority, cfg.MaxBookingPriority),
		cfg,
	)

	cfg.Log.Info("Booking services initialized",
		"database", cfg.MongoDatabaseName,
		"enforce_availability", cfg.EnforceAvailability,
		"create_blocks_pending", cfg.CreateBlocksPending,
	)
	return handler.NewBookingHandler(bookingService, cfg.Log), availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log)
}
