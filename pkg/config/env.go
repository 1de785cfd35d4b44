package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultBookingPriority = "DEFAULT_BOOKING_PRIORITY"
	EnvMinBookingPriority     = "MIN_BOOKING_PRIORITY"
	EnvMaxBookingPriority     = "MAX_BOOKING_PRIORITY"
	EnvMinRejectReasonLength  = "MIN_REJECT_REASON_LENGTH"

	EnvEnforceAvailability  = "ENFORCE_AVAILABILITY"
	EnvCreateBlocksPending  = "CREATE_BLOCKS_PENDING"
	EnvAvailabilityTimeZone = "AVAILABILITY_TIME_ZONE"

	EnvNotificationsTopic    = "NOTIFICATIONS_TOPIC"
	EnvNotificationsDLQTopic = "NOTIFICATIONS_DLQ_TOPIC"
	EnvNotificationsGroupID  = "NOTIFICATIONS_GROUP_ID"
)
