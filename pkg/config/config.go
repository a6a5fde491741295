package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"parkhub/pkg/client"
	"parkhub/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BillingIncrement     time.Duration
	OverstayBasePenalty  float64
	AdmissionLockTTL     time.Duration
	AvailabilityCacheTTL time.Duration

	DefaultSearchRadiusKm float64
	MaxSearchRadiusKm     float64

	ReservationSweepSpec  string
	SubscriptionSweepSpec string
	ViolationScanSpec     string

	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaDLQTopic    string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		BillingIncrement:     getEnvDuration(EnvBillingIncrement, DefaultBillingIncrement),
		OverstayBasePenalty:  getEnvFloat(EnvOverstayBasePenalty, DefaultOverstayBasePenalty),
		AdmissionLockTTL:     getEnvDuration(EnvAdmissionLockTTL, DefaultAdmissionLockTTL),
		AvailabilityCacheTTL: getEnvDuration(EnvAvailabilityCacheTTL, DefaultAvailabilityCacheTTL),

		DefaultSearchRadiusKm: getEnvFloat(EnvDefaultSearchRadiusKm, DefaultDefaultSearchRadiusKm),
		MaxSearchRadiusKm:     getEnvFloat(EnvMaxSearchRadiusKm, DefaultMaxSearchRadiusKm),

		ReservationSweepSpec:  getEnvStr(EnvReservationSweepSpec, DefaultReservationSweepSpec),
		SubscriptionSweepSpec: getEnvStr(EnvSubscriptionSweepSpec, DefaultSubscriptionSweepSpec),
		ViolationScanSpec:     getEnvStr(EnvViolationScanSpec, DefaultViolationScanSpec),

		KafkaBrokers:     splitList(getEnvStr(EnvKafkaBrokers, "")),
		KafkaEventsTopic: getEnvStr(EnvKafkaEventsTopic, DefaultKafkaEventsTopic),
		KafkaDLQTopic:    getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	for name, d := range map[string]time.Duration{
		"MongoConnTimeout":     cfg.MongoConnTimeout,
		"RateLimitWindow":      cfg.RateLimitWindow,
		"RequestTimeout":       cfg.RequestTimeout,
		"IdempotencyTTL":       cfg.IdempotencyTTL,
		"ReadTimeout":          cfg.ReadTimeout,
		"WriteTimeout":         cfg.WriteTimeout,
		"IdleTimeout":          cfg.IdleTimeout,
		"ShutdownTimeout":      cfg.ShutdownTimeout,
		"BillingIncrement":     cfg.BillingIncrement,
		"AdmissionLockTTL":     cfg.AdmissionLockTTL,
		"AvailabilityCacheTTL": cfg.AvailabilityCacheTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.OverstayBasePenalty < 0 {
		errs = append(errs, fmt.Sprintf("OverstayBasePenalty cannot be negative, got: %.2f", cfg.OverstayBasePenalty))
	}
	if cfg.DefaultSearchRadiusKm <= 0 {
		errs = append(errs, fmt.Sprintf("DefaultSearchRadiusKm must be positive, got: %.2f", cfg.DefaultSearchRadiusKm))
	}
	if cfg.MaxSearchRadiusKm < cfg.DefaultSearchRadiusKm {
		errs = append(errs, fmt.Sprintf("MaxSearchRadiusKm (%.2f) must be >= DefaultSearchRadiusKm (%.2f)", cfg.MaxSearchRadiusKm, cfg.DefaultSearchRadiusKm))
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{
		"ReservationSweepSpec":  cfg.ReservationSweepSpec,
		"SubscriptionSweepSpec": cfg.SubscriptionSweepSpec,
		"ViolationScanSpec":     cfg.ViolationScanSpec,
	} {
		if _, err := parser.Parse(spec); err != nil {
			errs = append(errs, fmt.Sprintf("%s is not a valid cron spec: %s", name, spec))
		}
	}

	if len(errs) > 0 {
		msg := "Configuration validation failed:\n"
		for i, e := range errs {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"billing_increment", cfg.BillingIncrement,
		"overstay_base_penalty", cfg.OverstayBasePenalty,
		"admission_lock_ttl", cfg.AdmissionLockTTL,
		"availability_cache_ttl", cfg.AvailabilityCacheTTL,
		"default_search_radius_km", cfg.DefaultSearchRadiusKm,
		"max_search_radius_km", cfg.MaxSearchRadiusKm,
		"reservation_sweep_spec", cfg.ReservationSweepSpec,
		"subscription_sweep_spec", cfg.SubscriptionSweepSpec,
		"violation_scan_spec", cfg.ViolationScanSpec,
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"kafka_events_topic", cfg.KafkaEventsTopic,
	)
}

// EventsEnabled reports whether domain events should be published. Without
// configured brokers the producer is skipped entirely.
func (cfg *Config) EventsEnabled() bool {
	return len(cfg.KafkaBrokers) > 0
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
