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

	EnvBillingIncrement     = "BILLING_INCREMENT"
	EnvOverstayBasePenalty  = "OVERSTAY_BASE_PENALTY"
	EnvAdmissionLockTTL     = "ADMISSION_LOCK_TTL"
	EnvAvailabilityCacheTTL = "AVAILABILITY_CACHE_TTL"

	EnvDefaultSearchRadiusKm = "DEFAULT_SEARCH_RADIUS_KM"
	EnvMaxSearchRadiusKm     = "MAX_SEARCH_RADIUS_KM"

	EnvReservationSweepSpec  = "RESERVATION_SWEEP_SPEC"
	EnvSubscriptionSweepSpec = "SUBSCRIPTION_SWEEP_SPEC"
	EnvViolationScanSpec     = "VIOLATION_SCAN_SPEC"

	EnvKafkaBrokers     = "KAFKA_BROKERS"
	EnvKafkaEventsTopic = "KAFKA_EVENTS_TOPIC"
	EnvKafkaDLQTopic    = "KAFKA_DLQ_TOPIC"
)
