package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "parkhub"
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

	DefaultBillingIncrement     = 15 * time.Minute
	DefaultOverstayBasePenalty  = 20.0
	DefaultAdmissionLockTTL     = 10 * time.Second
	DefaultAvailabilityCacheTTL = 5 * time.Second

	DefaultDefaultSearchRadiusKm = 3.0
	DefaultMaxSearchRadiusKm     = 50.0

	// Sweeps follow robfig/cron syntax.
	DefaultReservationSweepSpec  = "*/5 * * * *"
	DefaultSubscriptionSweepSpec = "0 * * * *"
	DefaultViolationScanSpec     = "*/10 * * * *"

	DefaultKafkaEventsTopic = "parkhub.events"
	DefaultKafkaDLQTopic    = "parkhub.events.dlq"

	DefaultPaginationLimit = 100
)
