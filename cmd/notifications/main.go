package main

import (
	"bookit/internal/audit"
	"bookit/internal/health"
	"bookit/internal/notifications/consumer"
	"bookit/internal/notifications/handler"
	"bookit/internal/notifications/repository"
	"bookit/internal/notifications/service"
	"bookit/pkg/app"
	"bookit/pkg/config"
	"bookit/pkg/kafka"
	kafkaconfig "bookit/pkg/kafka/config"
	kafkamiddleware "bookit/pkg/kafka/middleware"
	"bookit/pkg/model"
)

const ServiceName = "notifications"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	cfg.Log.Info("Starting Notifications service")

	recorder := audit.NewRecorder(audit.NewMongoAuditRepository(cfg), cfg.Log)
	notificationService := service.NewNotificationService(
		repository.NewAuditedNotificationRepository(
			repository.NewMongoNotificationRepository(cfg),
			recorder.For(model.EntityNotification),
		),
		cfg,
	)

	eventConsumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.NotificationsTopic,
		cfg.NotificationsGroupID,
		cfg.NotificationsDLQTopic,
		consumer.NewHandler(notificationService, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification consumer", "error", err)
	}

	metrics := kafkamiddleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		eventConsumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
		eventConsumer.Use(metrics.Consumer())
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(map[string]health.Check{
		"mongo": health.MongoCheck(cfg.Client.Mongo),
		"kafka": health.KafkaCheck(kafkaCfg.Brokers),
	}, handler.NewNotificationHandler(notificationService, cfg.Log))
	serverApp.AddWorker("notification-consumer", eventConsumer.Start)
	serverApp.OnShutdown(func() error {
		cfg.Log.Info("Notification consumer metrics", metrics.Snapshot().LogValues()...)
		return eventConsumer.Close()
	})
	serverApp.OnShutdown(func() error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}
