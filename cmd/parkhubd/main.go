package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	availabilityhandler "parkhub/internal/availability/handler"
	availabilityrepo "parkhub/internal/availability/repository"
	availabilityservice "parkhub/internal/availability/service"
	facilityhandler "parkhub/internal/facilities/handler"
	facilityrepo "parkhub/internal/facilities/repository"
	facilityservice "parkhub/internal/facilities/service"
	facilityvalidator "parkhub/internal/facilities/validator"
	mongoMigration "parkhub/internal/migrations/mongo"
	reservationhandler "parkhub/internal/reservations/handler"
	reservationrepo "parkhub/internal/reservations/repository"
	reservationservice "parkhub/internal/reservations/service"
	reservationvalidator "parkhub/internal/reservations/validator"
	sessionhandler "parkhub/internal/sessions/handler"
	sessionrepo "parkhub/internal/sessions/repository"
	sessionservice "parkhub/internal/sessions/service"
	subscriptionhandler "parkhub/internal/subscriptions/handler"
	subscriptionrepo "parkhub/internal/subscriptions/repository"
	subscriptionservice "parkhub/internal/subscriptions/service"
	subscriptionvalidator "parkhub/internal/subscriptions/validator"
	userrepo "parkhub/internal/users/repository"
	violationhandler "parkhub/internal/violations/handler"
	violationservice "parkhub/internal/violations/service"
	"parkhub/pkg/app"
	"parkhub/pkg/config"
	"parkhub/pkg/events"
	"parkhub/pkg/pricing"
)

const ServiceName = "parkhubd"

const sweepTimeout = 2 * time.Minute

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	migrationCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoMigration.RunMigration(migrationCtx, cfg.Client.Mongo, cfg.MongoDatabaseName); err != nil {
		cancel()
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cancel()

	publisher := initPublisher(cfg)
	services := initServices(cfg, publisher)

	cfg.Log.Info("Starting ParkHub service")
	serverApp := app.NewApplication(cfg)
	serverApp.SetScheduler(initScheduler(cfg, services))
	serverApp.SetPublisher(publisher)
	serverApp.SetApp(
		facilityhandler.NewFacilityHandler(services.facilities, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(services.availability, cfg.Log),
		reservationhandler.NewReservationHandler(services.reservations, cfg.Log),
		subscriptionhandler.NewSubscriptionHandler(services.subscriptions, cfg.Log),
		sessionhandler.NewSessionHandler(services.sessions, cfg.Log),
		violationhandler.NewViolationHandler(services.violations, cfg.Log),
	)
	serverApp.Run()
}

type parkhubServices struct {
	facilities    facilityservice.FacilityService
	availability  availabilityservice.AvailabilityService
	reservations  reservationservice.ReservationService
	subscriptions subscriptionservice.SubscriptionService
	sessions      sessionservice.SessionService
	violations    violationservice.ViolationService
}

func initServices(cfg *config.Config, publisher events.Publisher) *parkhubServices {
	calc := pricing.Calculator{
		Increment:           cfg.BillingIncrement,
		OverstayBasePenalty: cfg.OverstayBasePenalty,
		WeeksPerMonth:       pricing.DefaultWeeksPerMonth,
	}

	userRepo := userrepo.NewMongoUserRepository(cfg)
	facilityRepo := facilityrepo.NewMongoFacilityRepository(cfg)
	reservationRepo := reservationrepo.NewMongoReservationRepository(cfg)
	subscriptionRepo := subscriptionrepo.NewMongoSubscriptionRepository(cfg)
	sessionRepo := sessionrepo.NewMongoSessionRepository(cfg)
	lockRepo := availabilityrepo.NewAdmissionLockRepository(cfg)

	guard := availabilityservice.NewAdmissionGuard(lockRepo, cfg)
	availability := availabilityservice.NewAvailabilityService(
		facilityRepo,
		reservationRepo,
		subscriptionRepo,
		sessionRepo,
		cfg,
	)

	facilities := facilityservice.NewFacilityService(
		facilityRepo,
		userRepo,
		facilityvalidator.NewFacilityValidator(cfg.Log),
		cfg,
	)
	reservations := reservationservice.NewReservationService(
		reservationRepo,
		userRepo,
		facilityRepo,
		availability,
		guard,
		reservationvalidator.NewReservationValidator(cfg.Log),
		calc,
		publisher,
		cfg,
	)
	subscriptions := subscriptionservice.NewSubscriptionService(
		subscriptionRepo,
		userRepo,
		facilityRepo,
		guard,
		subscriptionvalidator.NewSubscriptionValidator(cfg.Log),
		calc,
		publisher,
		cfg,
	)
	sessions := sessionservice.NewSessionService(
		sessionRepo,
		userRepo,
		facilityRepo,
		reservationRepo,
		subscriptionRepo,
		guard,
		calc,
		publisher,
		cfg,
	)
	violations := violationservice.NewViolationService(
		facilityRepo,
		sessionRepo,
		reservationRepo,
		subscriptionRepo,
		calc,
		publisher,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return &parkhubServices{
		facilities:    facilities,
		availability:  availability,
		reservations:  reservations,
		subscriptions: subscriptions,
		sessions:      sessions,
		violations:    violations,
	}
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled() {
		cfg.Log.Info("No Kafka brokers configured, domain events disabled")
		return events.NopPublisher{}
	}

	producer, err := events.NewProducer(events.ProducerConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaEventsTopic,
		DLQTopic: cfg.KafkaDLQTopic,
		Source:   ServiceName,
	})
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka producer initialized", "topic", cfg.KafkaEventsTopic)
	return producer
}

func initScheduler(cfg *config.Config, services *parkhubServices) *cron.Cron {
	scheduler := cron.New()

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{
			name: "reservation-sweep",
			spec: cfg.ReservationSweepSpec,
			run: func(ctx context.Context) error {
				n, err := services.reservations.CompleteEnded(ctx)
				if err == nil && n > 0 {
					cfg.Log.Info("Completed ended reservations", "count", n)
				}
				return err
			},
		},
		{
			name: "subscription-sweep",
			spec: cfg.SubscriptionSweepSpec,
			run: func(ctx context.Context) error {
				n, err := services.subscriptions.ExpireEnded(ctx)
				if err == nil && n > 0 {
					cfg.Log.Info("Expired ended subscriptions", "count", n)
				}
				return err
			},
		},
		{
			name: "violation-scan",
			spec: cfg.ViolationScanSpec,
			run:  services.violations.SweepAll,
		},
	}

	for _, job := range jobs {
		job := job
		_, err := scheduler.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()
			if err := job.run(ctx); err != nil {
				cfg.Log.Error("Scheduled job failed", "job", job.name, "error", err)
			}
		})
		if err != nil {
			cfg.Log.Fatal("Failed to schedule job", "job", job.name, "spec", job.spec, "error", err)
		}
	}

	return scheduler
}
