package service

import (
	"context"
	"errors"
	"sync"
	"time"

	availabilityservice "parkhub/internal/availability/service"
	facilitieserrors "parkhub/internal/facilities/errors"
	reservationserrors "parkhub/internal/reservations/errors"
	sessionserrors "parkhub/internal/sessions/errors"
	"parkhub/internal/sessions/repository"
	"parkhub/pkg/config"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/events"
	"parkhub/pkg/model"
	"parkhub/pkg/pricing"
)

// UserStore is the slice of the user repository entry needs.
type UserStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// FacilityStore is the slice of the facility repository this service needs.
type FacilityStore interface {
	FindByID(ctx context.Context, id string) (*model.Facility, error)
}

// ReservationStore resolves the reservation that authorizes an entry.
type ReservationStore interface {
	FindConfirmedForUserAt(ctx context.Context, userID, facilityID string, at time.Time) (*model.Reservation, error)
}

// SubscriptionStore resolves the subscriptions that may authorize an entry.
type SubscriptionStore interface {
	FindActiveForUserAtFacility(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error)
}

// ExitReceipt is the billing outcome of closing a session.
type ExitReceipt struct {
	SessionID     string     `json:"session_id"`
	UserID        string     `json:"user_id"`
	FacilityID    string     `json:"facility_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	BaseAmount    float64    `json:"base_amount"`
	Penalty       float64    `json:"penalty"`
	Total         float64    `json:"total"`
	Overstayed    bool       `json:"overstayed"`
	AuthorizedEnd *time.Time `json:"authorized_end,omitempty"`
}

type SessionService interface {
	Enter(ctx context.Context, userID, facilityID string, at time.Time) (*model.ParkingSession, error)
	Exit(ctx context.Context, sessionID string, at time.Time) (*ExitReceipt, error)
	GetByID(ctx context.Context, id string) (*model.ParkingSession, error)
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.ParkingSession, int64, error)
}

type sessionService struct {
	repo          repository.SessionRepository
	users         UserStore
	facilities    FacilityStore
	reservations  ReservationStore
	subscriptions SubscriptionStore
	guard         availabilityservice.AdmissionGuard
	calc          pricing.Calculator
	publisher     events.Publisher
	cfg           *config.Config
}

func NewSessionService(
	repo repository.SessionRepository,
	users UserStore,
	facilities FacilityStore,
	reservations ReservationStore,
	subscriptions SubscriptionStore,
	guard availabilityservice.AdmissionGuard,
	calc pricing.Calculator,
	publisher events.Publisher,
	cfg *config.Config,
) SessionService {
	return &sessionService{
		repo:          repo,
		users:         users,
		facilities:    facilities,
		reservations:  reservations,
		subscriptions: subscriptions,
		guard:         guard,
		calc:          calc,
		publisher:     publisher,
		cfg:           cfg,
	}
}

func (s *sessionService) Enter(ctx context.Context, userID, facilityID string, at time.Time) (*model.ParkingSession, error) {
	if userID == "" || facilityID == "" {
		return nil, apperrors.InvalidInput("User ID and facility ID are required")
	}
	if at.IsZero() {
		at = time.Now()
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
	if !facility.IsOpenAt(at) {
		return nil, apperrors.Validation("Facility is closed at the entry time", nil)
	}

	if _, err := s.repo.FindActiveForUserAtFacility(ctx, userID, facilityID); err == nil {
		return nil, apperrors.Conflict("User already has an active session at this facility")
	} else if !errors.Is(err, sessionserrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to check active sessions", err)
	}

	auth, err := s.authorize(ctx, userID, facilityID, at)
	if err != nil {
		return nil, err
	}
	if auth.Kind == model.AuthNone {
		return nil, apperrors.NoAuthorization("No reservation or subscription authorizes entry at this time")
	}

	session, err := model.NewParkingSession(userID, facilityID, at, auth)
	if err != nil {
		return nil, apperrors.Validation("Invalid session", map[string]any{"error": err.Error()})
	}

	owner, err := s.guard.Lock(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	defer s.guard.Unlock(ctx, facilityID, owner)

	if err := s.repo.Create(ctx, session); err != nil {
		s.cfg.Log.Error("Failed to create session", "error", err)
		return nil, apperrors.Internal("Failed to create session", err)
	}

	s.publishSession(ctx, events.TypeSessionStarted, session)
	s.cfg.Log.Info("Session started",
		"id", session.ID,
		"user_id", userID,
		"facility_id", facilityID,
		"authorization", string(auth.Kind),
	)
	return session, nil
}

// authorize resolves the entry authorization: a confirmed reservation
// containing the instant wins, then any subscription covering it.
func (s *sessionService) authorize(ctx context.Context, userID, facilityID string, at time.Time) (model.Authorization, error) {
	reservation, err := s.reservations.FindConfirmedForUserAt(ctx, userID, facilityID, at)
	if err == nil {
		return model.ReservationAuth(reservation), nil
	}
	if !errors.Is(err, reservationserrors.ErrNotFound) {
		return model.NoAuth(), apperrors.Internal("Failed to check reservations", err)
	}

	subscriptions, err := s.subscriptions.FindActiveForUserAtFacility(ctx, userID, facilityID)
	if err != nil {
		return model.NoAuth(), apperrors.Internal("Failed to check subscriptions", err)
	}
	for _, sub := range subscriptions {
		if sub.Covers(at) {
			return model.SubscriptionAuth(sub), nil
		}
	}

	return model.NoAuth(), nil
}

func (s *sessionService) Exit(ctx context.Context, sessionID string, at time.Time) (*ExitReceipt, error) {
	if at.IsZero() {
		at = time.Now()
	}

	session, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, apperrors.InvalidState("Session is already closed")
	}
	if at.Before(session.StartTime) {
		return nil, apperrors.InvalidInput("Exit time cannot precede the session start")
	}

	facility, err := s.findFacility(ctx, session.FacilityID)
	if err != nil {
		return nil, err
	}

	base := s.calc.StayAmount(at.Sub(session.StartTime), facility.HourlyRate)
	penalty := 0.0
	overstayed := false
	if session.AuthorizedEnd != nil && at.After(*session.AuthorizedEnd) {
		penalty = s.calc.OverstayPenalty(at.Sub(*session.AuthorizedEnd), facility.HourlyRate)
		overstayed = true
	}
	total := base + penalty

	if err := session.Close(at, total, overstayed); err != nil {
		return nil, apperrors.InvalidState(err.Error())
	}
	if err := s.repo.Close(ctx, session); err != nil {
		if errors.Is(err, sessionserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Session", sessionID)
		}
		s.cfg.Log.Error("Failed to close session", "id", sessionID, "error", err)
		return nil, apperrors.Internal("Failed to close session", err)
	}

	s.publishSession(ctx, events.TypeSessionClosed, session)
	s.cfg.Log.Info("Session closed",
		"id", sessionID,
		"base_amount", base,
		"penalty", penalty,
		"total", total,
		"overstayed", overstayed,
	)

	return &ExitReceipt{
		SessionID:     session.ID,
		UserID:        session.UserID,
		FacilityID:    session.FacilityID,
		StartTime:     session.StartTime,
		EndTime:       at,
		BaseAmount:    base,
		Penalty:       penalty,
		Total:         total,
		Overstayed:    overstayed,
		AuthorizedEnd: session.AuthorizedEnd,
	}, nil
}

func (s *sessionService) GetByID(ctx context.Context, id string) (*model.ParkingSession, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sessionserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Session", id)
		}
		if errors.Is(err, sessionserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid session ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve session", err)
	}

	return session, nil
}

func (s *sessionService) ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.ParkingSession, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	var count int64
	var sessions []*model.ParkingSession
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count sessions", "user_id", userID, "error", errCount)
			errCount = apperrors.Internal("Failed to count sessions", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		sessions, errFind = s.repo.FindByUser(ctx, userID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list sessions", "user_id", userID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve sessions", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return sessions, count, nil
}

func (s *sessionService) findFacility(ctx context.Context, facilityID string) (*model.Facility, error) {
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

func (s *sessionService) publishSession(ctx context.Context, eventType string, session *model.ParkingSession) {
	err := s.publisher.Publish(ctx, eventType, session.FacilityID, events.SessionEvent{
		SessionID:  session.ID,
		UserID:     session.UserID,
		FacilityID: session.FacilityID,
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
		Amount:     session.Amount,
		Overstayed: session.Status == model.SessionOverstayed,
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to publish session event", "type", eventType, "id", session.ID, "error", err)
	}
}
