package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	availabilityservice "parkhub/internal/availability/service"
	facilitieserrors "parkhub/internal/facilities/errors"
	reservationserrors "parkhub/internal/reservations/errors"
	"parkhub/internal/reservations/repository"
	"parkhub/internal/reservations/validator"
	"parkhub/pkg/config"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/events"
	"parkhub/pkg/model"
	"parkhub/pkg/pricing"
)

// UserStore is the slice of the user repository admission needs.
type UserStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// FacilityStore is the slice of the facility repository admission needs.
type FacilityStore interface {
	FindByID(ctx context.Context, id string) (*model.Facility, error)
}

type ReservationService interface {
	Create(ctx context.Context, userID, facilityID string, start, end time.Time) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Reservation, int64, error)
	Cancel(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) error
	CompleteEnded(ctx context.Context) (int, error)
}

type reservationService struct {
	repo         repository.ReservationRepository
	users        UserStore
	facilities   FacilityStore
	availability availabilityservice.AvailabilityService
	guard        availabilityservice.AdmissionGuard
	validator    *validator.ReservationValidator
	calc         pricing.Calculator
	publisher    events.Publisher
	cfg          *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	users UserStore,
	facilities FacilityStore,
	availability availabilityservice.AvailabilityService,
	guard availabilityservice.AdmissionGuard,
	validator *validator.ReservationValidator,
	calc pricing.Calculator,
	publisher events.Publisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:         repo,
		users:        users,
		facilities:   facilities,
		availability: availability,
		guard:        guard,
		validator:    validator,
		calc:         calc,
		publisher:    publisher,
		cfg:          cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, userID, facilityID string, start, end time.Time) (*model.Reservation, error) {
	if userID == "" || facilityID == "" {
		return nil, apperrors.InvalidInput("User ID and facility ID are required")
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check user existence", err)
	}
	if !exists {
		return nil, apperrors.NotFoundWithID("User", userID)
	}

	facility, err := s.findFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}

	amount := s.calc.StayAmount(end.Sub(start), facility.HourlyRate)
	reservation, err := model.NewReservation(userID, facilityID, start, end, amount, time.Now())
	if err != nil {
		s.cfg.Log.Warn("Reservation rejected", "user_id", userID, "facility_id", facilityID, "error", err)
		return nil, apperrors.Validation("Invalid reservation window", map[string]any{"error": err.Error()})
	}

	if !facility.IsOpenAt(start) {
		return nil, apperrors.Validation("Facility is closed at the requested start time", nil)
	}

	if err := s.validator.Validate(reservation); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	// Serialize admission per facility, then re-check capacity inside the
	// transaction so the check and the insert are atomic.
	owner, err := s.guard.Lock(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	defer s.guard.Unlock(ctx, facilityID, owner)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		ok, err := s.availability.HasSpacesDuring(sessCtx, facilityID, start, end, 1)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("No spaces available for the requested window")
		}
		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation", "error", err)
		return nil, err
	}

	s.publish(ctx, events.TypeReservationConfirmed, reservation)
	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"user_id", userID,
		"facility_id", facilityID,
		"start_time", start,
		"amount", amount,
	)
	return reservation, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	return reservation, nil
}

func (s *reservationService) ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "user_id", userID, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindByUser(ctx, userID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "user_id", userID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

func (s *reservationService) Cancel(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.ReservationCancelled, events.TypeReservationCancelled)
}

func (s *reservationService) Complete(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.ReservationCompleted, "")
}

func (s *reservationService) transition(ctx context.Context, id, status, eventType string) error {
	reservation, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := reservation.TransitionTo(status); err != nil {
		return apperrors.InvalidState(err.Error())
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Reservation", id)
		}
		s.cfg.Log.Error("Failed to update reservation status", "id", id, "status", status, "error", err)
		return apperrors.Internal("Failed to update reservation", err)
	}

	if eventType != "" {
		s.publish(ctx, eventType, reservation)
	}
	s.cfg.Log.Info("Reservation status updated", "id", id, "status", status)
	return nil
}

// CompleteEnded is the periodic sweep that retires confirmed reservations
// whose end time has passed.
func (s *reservationService) CompleteEnded(ctx context.Context) (int, error) {
	ended, err := s.repo.FindConfirmedEndedBefore(ctx, time.Now())
	if err != nil {
		s.cfg.Log.Error("Failed to find ended reservations", "error", err)
		return 0, apperrors.Internal("Failed to find ended reservations", err)
	}

	completed := 0
	for _, reservation := range ended {
		if err := reservation.TransitionTo(model.ReservationCompleted); err != nil {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, reservation.ID, model.ReservationCompleted); err != nil {
			s.cfg.Log.Warn("Failed to complete ended reservation", "id", reservation.ID, "error", err)
			continue
		}
		s.publish(ctx, events.TypeReservationExpired, reservation)
		completed++
	}

	if completed > 0 {
		s.cfg.Log.Info("Completed ended reservations", "count", completed)
	}
	return completed, nil
}

func (s *reservationService) findFacility(ctx context.Context, facilityID string) (*model.Facility, error) {
	facility, err := s.facilities.FindByID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Facility", facilityID)
		}
		if errors.Is(err, facilitieserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid facility ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve facility", err)
	}
	return facility, nil
}

func (s *reservationService) publish(ctx context.Context, eventType string, reservation *model.Reservation) {
	err := s.publisher.Publish(ctx, eventType, reservation.FacilityID, events.ReservationEvent{
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		FacilityID:    reservation.FacilityID,
		StartTime:     reservation.StartTime,
		EndTime:       reservation.EndTime,
		Amount:        reservation.Amount,
		Status:        reservation.Status,
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to publish reservation event", "type", eventType, "id", reservation.ID, "error", err)
	}
}
