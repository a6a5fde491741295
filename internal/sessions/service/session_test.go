package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	reservationserrors "parkhub/internal/reservations/errors"
	sessionserrors "parkhub/internal/sessions/errors"
	"parkhub/pkg/config"
	mongotx "parkhub/pkg/db/mongo"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/events"
	"parkhub/pkg/logger"
	"parkhub/pkg/model"
	"parkhub/pkg/pricing"
)

const (
	testUserID        = "64f1a2b3c4d5e6f7a8b9c0d2"
	testFacilityID    = "64f1a2b3c4d5e6f7a8b9c0d1"
	testReservationID = "64f1a2b3c4d5e6f7a8b9c0d3"
	testSessionID     = "64f1a2b3c4d5e6f7a8b9c0d4"
)

type mockSessionRepository struct {
	createFunc                      func(ctx context.Context, session *model.ParkingSession) error
	findByIDFunc                    func(ctx context.Context, id string) (*model.ParkingSession, error)
	closeFunc                       func(ctx context.Context, session *model.ParkingSession) error
	findActiveForUserAtFacilityFunc func(ctx context.Context, userID, facilityID string) (*model.ParkingSession, error)
	findActiveByFacilityFunc        func(ctx context.Context, facilityID string) ([]*model.ParkingSession, error)
}

func (m *mockSessionRepository) Create(ctx context.Context, session *model.ParkingSession) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, session)
	}
	return nil
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.ParkingSession, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, sessionserrors.ErrNotFound
}

func (m *mockSessionRepository) Close(ctx context.Context, session *model.ParkingSession) error {
	if m.closeFunc != nil {
		return m.closeFunc(ctx, session)
	}
	return nil
}

func (m *mockSessionRepository) FindActiveForUserAtFacility(ctx context.Context, userID, facilityID string) (*model.ParkingSession, error) {
	if m.findActiveForUserAtFacilityFunc != nil {
		return m.findActiveForUserAtFacilityFunc(ctx, userID, facilityID)
	}
	return nil, sessionserrors.ErrNotFound
}

func (m *mockSessionRepository) FindActiveByFacility(ctx context.Context, facilityID string) ([]*model.ParkingSession, error) {
	if m.findActiveByFacilityFunc != nil {
		return m.findActiveByFacilityFunc(ctx, facilityID)
	}
	return nil, nil
}

func (m *mockSessionRepository) CountActiveByFacility(ctx context.Context, facilityID string) (int64, error) {
	return 0, nil
}

func (m *mockSessionRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.ParkingSession, error) {
	return nil, nil
}

func (m *mockSessionRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (m *mockSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockUserStore struct {
	existsFunc func(ctx context.Context, id string) (bool, error)
}

func (m *mockUserStore) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, id)
	}
	return true, nil
}

type mockFacilityStore struct {
	facility *model.Facility
}

func (m *mockFacilityStore) FindByID(ctx context.Context, id string) (*model.Facility, error) {
	if m.facility != nil {
		return m.facility, nil
	}
	return &model.Facility{
		ID:         testFacilityID,
		OwnerID:    testUserID,
		Name:       "Central Garage",
		Capacity:   10,
		HourlyRate: 10,
	}, nil
}

type mockReservationStore struct {
	findConfirmedForUserAtFunc func(ctx context.Context, userID, facilityID string, at time.Time) (*model.Reservation, error)
}

func (m *mockReservationStore) FindConfirmedForUserAt(ctx context.Context, userID, facilityID string, at time.Time) (*model.Reservation, error) {
	if m.findConfirmedForUserAtFunc != nil {
		return m.findConfirmedForUserAtFunc(ctx, userID, facilityID, at)
	}
	return nil, reservationserrors.ErrNotFound
}

type mockSubscriptionStore struct {
	findActiveForUserAtFacilityFunc func(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error)
}

func (m *mockSubscriptionStore) FindActiveForUserAtFacility(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error) {
	if m.findActiveForUserAtFacilityFunc != nil {
		return m.findActiveForUserAtFacilityFunc(ctx, userID, facilityID)
	}
	return nil, nil
}

type mockGuard struct{}

func (m *mockGuard) Lock(ctx context.Context, facilityID string) (string, error) {
	return "owner-token", nil
}

func (m *mockGuard) Unlock(ctx context.Context, facilityID, owner string) {}

type capturingPublisher struct {
	published []string
}

func (p *capturingPublisher) Publish(ctx context.Context, eventType, facilityID string, payload any) error {
	p.published = append(p.published, eventType)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
}

func newTestService(
	repo *mockSessionRepository,
	reservations *mockReservationStore,
	subscriptions *mockSubscriptionStore,
	publisher events.Publisher,
) SessionService {
	return NewSessionService(
		repo,
		&mockUserStore{},
		&mockFacilityStore{},
		reservations,
		subscriptions,
		&mockGuard{},
		pricing.New(),
		publisher,
		testConfig(),
	)
}

func TestEnter_ReservationAuthorization(t *testing.T) {
	at := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	reservationEnd := at.Add(2 * time.Hour)
	reservations := &mockReservationStore{
		findConfirmedForUserAtFunc: func(ctx context.Context, userID, facilityID string, t time.Time) (*model.Reservation, error) {
			return &model.Reservation{
				ID:         testReservationID,
				UserID:     userID,
				FacilityID: facilityID,
				StartTime:  at.Add(-time.Hour),
				EndTime:    reservationEnd,
				Status:     model.ReservationConfirmed,
			}, nil
		},
	}
	publisher := &capturingPublisher{}
	service := newTestService(&mockSessionRepository{}, reservations, &mockSubscriptionStore{}, publisher)

	session, err := service.Enter(context.Background(), testUserID, testFacilityID, at)
	require.NoError(t, err)
	assert.Equal(t, testReservationID, session.ReservationID)
	require.NotNil(t, session.AuthorizedEnd)
	assert.Equal(t, reservationEnd, *session.AuthorizedEnd)
	assert.Equal(t, model.SessionActive, session.Status)
	assert.Equal(t, []string{events.TypeSessionStarted}, publisher.published)
}

func TestEnter_SubscriptionAuthorization(t *testing.T) {
	// Monday 10:00 inside the 09:00-17:00 slot.
	at := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	subscriptions := &mockSubscriptionStore{
		findActiveForUserAtFacilityFunc: func(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error) {
			return []*model.Subscription{{
				UserID:     userID,
				FacilityID: facilityID,
				WeeklySlots: map[string][]model.Slot{
					"1": {{Start: "09:00", End: "17:00"}},
				},
				StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
				Status:    model.SubscriptionActive,
			}}, nil
		},
	}
	service := newTestService(&mockSessionRepository{}, &mockReservationStore{}, subscriptions, events.NopPublisher{})

	session, err := service.Enter(context.Background(), testUserID, testFacilityID, at)
	require.NoError(t, err)
	assert.Empty(t, session.ReservationID)
	// Subscription entries have no individual end time to overstay.
	assert.Nil(t, session.AuthorizedEnd)
}

func TestEnter_NoBackingRejected(t *testing.T) {
	at := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	service := newTestService(&mockSessionRepository{}, &mockReservationStore{}, &mockSubscriptionStore{}, events.NopPublisher{})

	_, err := service.Enter(context.Background(), testUserID, testFacilityID, at)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNoAuthorization, appErr.Code)
}

func TestEnter_SubscriptionOutsideSlotRejected(t *testing.T) {
	// Monday 18:00, one hour past the slot.
	at := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)
	subscriptions := &mockSubscriptionStore{
		findActiveForUserAtFacilityFunc: func(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error) {
			return []*model.Subscription{{
				WeeklySlots: map[string][]model.Slot{
					"1": {{Start: "09:00", End: "17:00"}},
				},
				StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
				Status:    model.SubscriptionActive,
			}}, nil
		},
	}
	service := newTestService(&mockSessionRepository{}, &mockReservationStore{}, subscriptions, events.NopPublisher{})

	_, err := service.Enter(context.Background(), testUserID, testFacilityID, at)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNoAuthorization, appErr.Code)
}

func TestEnter_DuplicateActiveSessionRejected(t *testing.T) {
	at := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	repo := &mockSessionRepository{
		findActiveForUserAtFacilityFunc: func(ctx context.Context, userID, facilityID string) (*model.ParkingSession, error) {
			return &model.ParkingSession{ID: testSessionID, Status: model.SessionActive}, nil
		},
	}
	service := newTestService(repo, &mockReservationStore{}, &mockSubscriptionStore{}, events.NopPublisher{})

	_, err := service.Enter(context.Background(), testUserID, testFacilityID, at)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.True(t, appErr.Retryable())
}

func TestExit_WithinAuthorizedWindow(t *testing.T) {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	authorizedEnd := start.Add(3 * time.Hour)
	var closed *model.ParkingSession
	repo := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.ParkingSession, error) {
			return &model.ParkingSession{
				ID:            id,
				UserID:        testUserID,
				FacilityID:    testFacilityID,
				ReservationID: testReservationID,
				StartTime:     start,
				AuthorizedEnd: &authorizedEnd,
				Status:        model.SessionActive,
			}, nil
		},
		closeFunc: func(ctx context.Context, session *model.ParkingSession) error {
			closed = session
			return nil
		},
	}
	publisher := &capturingPublisher{}
	service := newTestService(repo, &mockReservationStore{}, &mockSubscriptionStore{}, publisher)

	receipt, err := service.Exit(context.Background(), testSessionID, start.Add(2*time.Hour))
	require.NoError(t, err)
	// 2h at 10/h, no penalty.
	assert.InDelta(t, 20.0, receipt.BaseAmount, 1e-9)
	assert.Zero(t, receipt.Penalty)
	assert.InDelta(t, 20.0, receipt.Total, 1e-9)
	assert.False(t, receipt.Overstayed)
	require.NotNil(t, closed)
	assert.Equal(t, model.SessionCompleted, closed.Status)
	assert.Equal(t, []string{events.TypeSessionClosed}, publisher.published)
}

func TestExit_OverstayPenalty(t *testing.T) {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	authorizedEnd := start.Add(2 * time.Hour)
	var closed *model.ParkingSession
	repo := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.ParkingSession, error) {
			return &model.ParkingSession{
				ID:            id,
				UserID:        testUserID,
				FacilityID:    testFacilityID,
				ReservationID: testReservationID,
				StartTime:     start,
				AuthorizedEnd: &authorizedEnd,
				Status:        model.SessionActive,
			}, nil
		},
		closeFunc: func(ctx context.Context, session *model.ParkingSession) error {
			closed = session
			return nil
		},
	}
	service := newTestService(repo, &mockReservationStore{}, &mockSubscriptionStore{}, events.NopPublisher{})

	// Exits 50 minutes past the authorized end: 2h50m stay bills as 3h, the
	// 50m overage bills as 1h on top of the 20 base penalty.
	receipt, err := service.Exit(context.Background(), testSessionID, start.Add(2*time.Hour+50*time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 30.0, receipt.BaseAmount, 1e-9)
	assert.InDelta(t, 30.0, receipt.Penalty, 1e-9)
	assert.InDelta(t, 60.0, receipt.Total, 1e-9)
	assert.True(t, receipt.Overstayed)
	require.NotNil(t, closed)
	assert.Equal(t, model.SessionOverstayed, closed.Status)
}

func TestExit_SubscriptionSessionNeverOverstays(t *testing.T) {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	repo := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.ParkingSession, error) {
			return &model.ParkingSession{
				ID:         id,
				UserID:     testUserID,
				FacilityID: testFacilityID,
				StartTime:  start,
				Status:     model.SessionActive,
			}, nil
		},
	}
	service := newTestService(repo, &mockReservationStore{}, &mockSubscriptionStore{}, events.NopPublisher{})

	receipt, err := service.Exit(context.Background(), testSessionID, start.Add(14*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, receipt.Penalty)
	assert.False(t, receipt.Overstayed)
}

func TestExit_ClosedSessionRejected(t *testing.T) {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	amount := 10.0
	repo := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.ParkingSession, error) {
			return &model.ParkingSession{
				ID:         id,
				UserID:     testUserID,
				FacilityID: testFacilityID,
				StartTime:  start,
				EndTime:    &end,
				Amount:     &amount,
				Status:     model.SessionCompleted,
			}, nil
		},
	}
	service := newTestService(repo, &mockReservationStore{}, &mockSubscriptionStore{}, events.NopPublisher{})

	_, err := service.Exit(context.Background(), testSessionID, end.Add(time.Hour))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}
