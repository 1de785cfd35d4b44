package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "bookit"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultDefaultBookingPriority = 0
	DefaultMinBookingPriority     = 0
	DefaultMaxBookingPriority     = 10
	DefaultMinRejectReasonLength  = 10

	DefaultEnforceAvailability  = true
	DefaultCreateBlocksPending  = true
	DefaultAvailabilityTimeZone = "UTC"

	DefaultNotificationsTopic    = "booking-notifications"
	DefaultNotificationsDLQTopic = "booking-notifications-dlq"
	DefaultNotificationsGroupID  = "notifications-service"
)
