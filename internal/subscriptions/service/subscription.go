package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	availabilityservice "parkhub/internal/availability/service"
	facilitieserrors "parkhub/internal/facilities/errors"
	subscriptionserrors "parkhub/internal/subscriptions/errors"
	"parkhub/internal/subscriptions/repository"
	"parkhub/internal/subscriptions/validator"
	"parkhub/pkg/config"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/events"
	"parkhub/pkg/model"
	"parkhub/pkg/pricing"
	"parkhub/pkg/timeutil"
)

// UserStore is the slice of the user repository admission needs.
type UserStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// FacilityStore is the slice of the facility repository admission needs.
type FacilityStore interface {
	FindByID(ctx context.Context, id string) (*model.Facility, error)
}

type SubscriptionService interface {
	Create(ctx context.Context, userID, facilityID string, slots map[string][]model.Slot, months int, startDate time.Time) (*model.Subscription, error)
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Subscription, int64, error)
	Cancel(ctx context.Context, id string) error
	ExpireEnded(ctx context.Context) (int, error)
}

type subscriptionService struct {
	repo       repository.SubscriptionRepository
	users      UserStore
	facilities FacilityStore
	guard      availabilityservice.AdmissionGuard
	validator  *validator.SubscriptionValidator
	calc       pricing.Calculator
	publisher  events.Publisher
	cfg        *config.Config
}

func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	users UserStore,
	facilities FacilityStore,
	guard availabilityservice.AdmissionGuard,
	validator *validator.SubscriptionValidator,
	calc pricing.Calculator,
	publisher events.Publisher,
	cfg *config.Config,
) SubscriptionService {
	return &subscriptionService{
		repo:       repo,
		users:      users,
		facilities: facilities,
		guard:      guard,
		validator:  validator,
		calc:       calc,
		publisher:  publisher,
		cfg:        cfg,
	}
}

func (s *subscriptionService) Create(ctx context.Context, userID, facilityID string, slots map[string][]model.Slot, months int, startDate time.Time) (*model.Subscription, error) {
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

	if err := s.validator.ValidateSlotsWithinHours(slots, facility); err != nil {
		s.cfg.Log.Warn("Subscription slots rejected", "user_id", userID, "facility_id", facilityID, "error", err)
		return nil, apperrors.Validation("Subscription slots outside opening hours", map[string]any{"error": err.Error()})
	}

	weeklyMinutes := model.WeeklySlotMinutes(slots)
	monthlyAmount := s.calc.MonthlyAmount(weeklyMinutes, facility.HourlyRate)
	subscription, err := model.NewSubscription(userID, facilityID, slots, months, startDate, monthlyAmount, time.Now())
	if err != nil {
		return nil, apperrors.Validation("Invalid subscription", map[string]any{"error": err.Error()})
	}

	if err := s.validator.Validate(subscription); err != nil {
		s.cfg.Log.Warn("Subscription validation failed", "error", err)
		return nil, apperrors.Validation("Subscription validation failed", map[string]any{"error": err.Error()})
	}

	existing, err := s.repo.FindActiveForUserAtFacility(ctx, userID, facilityID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check existing subscriptions", err)
	}
	if len(existing) > 0 {
		return nil, apperrors.Conflict("User already has an active subscription at this facility")
	}

	owner, err := s.guard.Lock(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	defer s.guard.Unlock(ctx, facilityID, owner)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifySlotCapacity(sessCtx, subscription, facility); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, subscription); err != nil {
			return apperrors.Internal("Failed to create subscription", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create subscription", "error", err)
		return nil, err
	}

	s.publish(ctx, events.TypeSubscriptionCreated, subscription)
	s.cfg.Log.Info("Subscription created successfully",
		"id", subscription.ID,
		"user_id", userID,
		"facility_id", facilityID,
		"months", months,
		"monthly_amount", monthlyAmount,
	)
	return subscription, nil
}

// verifySlotCapacity rejects the subscription if any requested slot would
// push the count of overlapping committed slots past the facility capacity.
func (s *subscriptionService) verifySlotCapacity(ctx context.Context, subscription *model.Subscription, facility *model.Facility) error {
	existing, err := s.repo.FindActiveByFacility(ctx, subscription.FacilityID)
	if err != nil {
		return apperrors.Internal("Failed to load facility subscriptions", err)
	}

	for day, daySlots := range subscription.WeeklySlots {
		d, err := strconv.Atoi(day)
		if err != nil {
			continue
		}
		weekday := time.Weekday(d)

		for _, slot := range daySlots {
			startMin, err1 := timeutil.ParseHHMM(slot.Start)
			endMin, err2 := timeutil.ParseHHMM(slot.End)
			if err1 != nil || err2 != nil {
				continue
			}

			committed := 0
			for _, other := range existing {
				if other.ID == subscription.ID {
					continue
				}
				if !timeutil.Overlaps(other.StartDate, other.EndDate, subscription.StartDate, subscription.EndDate) {
					continue
				}
				for _, otherSlot := range other.SlotsOn(weekday) {
					oStart, e1 := timeutil.ParseHHMM(otherSlot.Start)
					oEnd, e2 := timeutil.ParseHHMM(otherSlot.End)
					if e1 != nil || e2 != nil {
						continue
					}
					if timeutil.MinutesOverlap(startMin, endMin, oStart, oEnd) {
						committed++
						break
					}
				}
			}

			if committed+1 > facility.Capacity {
				return apperrors.Conflict("Requested slot has no free space for the subscription period")
			}
		}
	}

	return nil
}

func (s *subscriptionService) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Subscription ID cannot be empty")
	}

	subscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, subscriptionserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Subscription", id)
		}
		if errors.Is(err, subscriptionserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid subscription ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve subscription", err)
	}

	return subscription, nil
}

func (s *subscriptionService) ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Subscription, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	var count int64
	var subscriptions []*model.Subscription
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count subscriptions", "user_id", userID, "error", errCount)
			errCount = apperrors.Internal("Failed to count subscriptions", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		subscriptions, errFind = s.repo.FindByUser(ctx, userID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list subscriptions", "user_id", userID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve subscriptions", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return subscriptions, count, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, id string) error {
	subscription, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := subscription.Cancel(); err != nil {
		return apperrors.InvalidState(err.Error())
	}

	if err := s.repo.UpdateStatus(ctx, id, model.SubscriptionCancelled); err != nil {
		if errors.Is(err, subscriptionserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Subscription", id)
		}
		s.cfg.Log.Error("Failed to cancel subscription", "id", id, "error", err)
		return apperrors.Internal("Failed to cancel subscription", err)
	}

	s.publish(ctx, events.TypeSubscriptionCancelled, subscription)
	s.cfg.Log.Info("Subscription cancelled", "id", id)
	return nil
}

// ExpireEnded is the periodic sweep that retires active subscriptions past
// their end date.
func (s *subscriptionService) ExpireEnded(ctx context.Context) (int, error) {
	ended, err := s.repo.FindActiveEndedBefore(ctx, time.Now())
	if err != nil {
		s.cfg.Log.Error("Failed to find ended subscriptions", "error", err)
		return 0, apperrors.Internal("Failed to find ended subscriptions", err)
	}

	expired := 0
	for _, subscription := range ended {
		if err := s.repo.UpdateStatus(ctx, subscription.ID, model.SubscriptionExpired); err != nil {
			s.cfg.Log.Warn("Failed to expire subscription", "id", subscription.ID, "error", err)
			continue
		}
		subscription.Status = model.SubscriptionExpired
		s.publish(ctx, events.TypeSubscriptionExpired, subscription)
		expired++
	}

	if expired > 0 {
		s.cfg.Log.Info("Expired ended subscriptions", "count", expired)
	}
	return expired, nil
}

func (s *subscriptionService) findFacility(ctx context.Context, facilityID string) (*model.Facility, error) {
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

func (s *subscriptionService) publish(ctx context.Context, eventType string, subscription *model.Subscription) {
	err := s.publisher.Publish(ctx, eventType, subscription.FacilityID, events.SubscriptionEvent{
		SubscriptionID: subscription.ID,
		UserID:         subscription.UserID,
		FacilityID:     subscription.FacilityID,
		StartDate:      subscription.StartDate,
		EndDate:        subscription.EndDate,
		MonthlyAmount:  subscription.MonthlyAmount,
		Status:         subscription.Status,
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to publish subscription event", "type", eventType, "id", subscription.ID, "error", err)
	}
}
