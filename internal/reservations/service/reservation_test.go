package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	reservationserrors "parkhub/internal/reservations/errors"
	"parkhub/internal/reservations/validator"
	"parkhub/pkg/config"
	mongotx "parkhub/pkg/db/mongo"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/events"
	"parkhub/pkg/logger"
	"parkhub/pkg/model"
	"parkhub/pkg/pricing"
)

const (
	testUserID     = "64f1a2b3c4d5e6f7a8b9c0d2"
	testFacilityID = "64f1a2b3c4d5e6f7a8b9c0d1"
	testID         = "64f1a2b3c4d5e6f7a8b9c0d3"
)

type mockReservationRepository struct {
	createFunc                   func(ctx context.Context, reservation *model.Reservation) error
	findByIDFunc                 func(ctx context.Context, id string) (*model.Reservation, error)
	updateStatusFunc             func(ctx context.Context, id string, status string) error
	findByUserFunc               func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Reservation, error)
	countByUserFunc              func(ctx context.Context, userID string) (int64, error)
	findConfirmedInWindowFunc    func(ctx context.Context, facilityID string, start, end time.Time) ([]*model.Reservation, error)
	findConfirmedForUserAtFunc   func(ctx context.Context, userID, facilityID string, at time.Time) (*model.Reservation, error)
	findConfirmedEndedBeforeFunc func(ctx context.Context, t time.Time) ([]*model.Reservation, error)
}

func (m *mockReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, reservation)
	}
	return nil
}

func (m *mockReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationserrors.ErrNotFound
}

func (m *mockReservationRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockReservationRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Reservation, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockReservationRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockReservationRepository) FindConfirmedInWindow(ctx context.Context, facilityID string, start, end time.Time) ([]*model.Reservation, error) {
	if m.findConfirmedInWindowFunc != nil {
		return m.findConfirmedInWindowFunc(ctx, facilityID, start, end)
	}
	return nil, nil
}

func (m *mockReservationRepository) FindConfirmedForUserAt(ctx context.Context, userID, facilityID string, at time.Time) (*model.Reservation, error) {
	if m.findConfirmedForUserAtFunc != nil {
		return m.findConfirmedForUserAtFunc(ctx, userID, facilityID, at)
	}
	return nil, reservationserrors.ErrNotFound
}

func (m *mockReservationRepository) FindConfirmedEndedBefore(ctx context.Context, t time.Time) ([]*model.Reservation, error) {
	if m.findConfirmedEndedBeforeFunc != nil {
		return m.findConfirmedEndedBeforeFunc(ctx, t)
	}
	return nil, nil
}

func (m *mockReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
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
	findByIDFunc func(ctx context.Context, id string) (*model.Facility, error)
}

func (m *mockFacilityStore) FindByID(ctx context.Context, id string) (*model.Facility, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Facility{
		ID:         testFacilityID,
		OwnerID:    testUserID,
		Name:       "Central Garage",
		Capacity:   10,
		HourlyRate: 10,
	}, nil
}

type mockAvailability struct {
	hasSpacesDuringFunc func(ctx context.Context, facilityID string, start, end time.Time, needed int) (bool, error)
}

func (m *mockAvailability) SpacesAt(ctx context.Context, facilityID string, at time.Time) (int, error) {
	return 0, nil
}

func (m *mockAvailability) SpacesAtCached(ctx context.Context, facilityID string, at time.Time) (int, error) {
	return 0, nil
}

func (m *mockAvailability) HasSpacesDuring(ctx context.Context, facilityID string, start, end time.Time, needed int) (bool, error) {
	if m.hasSpacesDuringFunc != nil {
		return m.hasSpacesDuringFunc(ctx, facilityID, start, end, needed)
	}
	return true, nil
}

type mockGuard struct {
	lockFunc   func(ctx context.Context, facilityID string) (string, error)
	unlockFunc func(ctx context.Context, facilityID, owner string)
}

func (m *mockGuard) Lock(ctx context.Context, facilityID string) (string, error) {
	if m.lockFunc != nil {
		return m.lockFunc(ctx, facilityID)
	}
	return "owner-token", nil
}

func (m *mockGuard) Unlock(ctx context.Context, facilityID, owner string) {
	if m.unlockFunc != nil {
		m.unlockFunc(ctx, facilityID, owner)
	}
}

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

func newTestService(repo *mockReservationRepository, availability *mockAvailability, publisher events.Publisher) ReservationService {
	cfg := testConfig()
	return NewReservationService(
		repo,
		&mockUserStore{},
		&mockFacilityStore{},
		availability,
		&mockGuard{},
		validator.NewReservationValidator(cfg.Log),
		pricing.New(),
		publisher,
		cfg,
	)
}

func TestCreate_Success(t *testing.T) {
	var created *model.Reservation
	repo := &mockReservationRepository{
		createFunc: func(ctx context.Context, reservation *model.Reservation) error {
			reservation.ID = testID
			created = reservation
			return nil
		},
	}
	publisher := &capturingPublisher{}
	service := newTestService(repo, &mockAvailability{}, publisher)

	start := time.Now().Add(time.Hour).Truncate(time.Minute)
	end := start.Add(2 * time.Hour)

	reservation, err := service.Create(context.Background(), testUserID, testFacilityID, start, end)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, model.ReservationConfirmed, reservation.Status)
	// 2h at 10/h.
	assert.InDelta(t, 20.0, reservation.Amount, 1e-9)
	assert.Equal(t, []string{events.TypeReservationConfirmed}, publisher.published)
}

func TestCreate_NoCapacityIsRetryableConflict(t *testing.T) {
	created := false
	repo := &mockReservationRepository{
		createFunc: func(ctx context.Context, reservation *model.Reservation) error {
			created = true
			return nil
		},
	}
	availability := &mockAvailability{
		hasSpacesDuringFunc: func(ctx context.Context, facilityID string, start, end time.Time, needed int) (bool, error) {
			return false, nil
		},
	}
	publisher := &capturingPublisher{}
	service := newTestService(repo, availability, publisher)

	start := time.Now().Add(time.Hour)
	_, err := service.Create(context.Background(), testUserID, testFacilityID, start, start.Add(time.Hour))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.True(t, appErr.Retryable())
	assert.False(t, created)
	assert.Empty(t, publisher.published)
}

func TestCreate_WindowValidation(t *testing.T) {
	service := newTestService(&mockReservationRepository{}, &mockAvailability{}, events.NopPublisher{})
	start := time.Now().Add(time.Hour)

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"end before start", start, start.Add(-time.Hour)},
		{"too short", start, start.Add(10 * time.Minute)},
		{"too long", start, start.Add(25 * time.Hour)},
		{"start in past", time.Now().Add(-time.Hour), time.Now().Add(time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), testUserID, testFacilityID, tc.start, tc.end)
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CodeValidation, appErr.Code)
		})
	}
}

func TestCreate_ClosedFacility(t *testing.T) {
	cfg := testConfig()
	facilities := &mockFacilityStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Facility, error) {
			return &model.Facility{
				ID:         testFacilityID,
				OwnerID:    testUserID,
				Name:       "Office Garage",
				Capacity:   10,
				HourlyRate: 10,
				OpeningHours: map[string][]model.HoursWindow{
					// Never open on the requested weekday.
					"0": {{Open: "09:00", Close: "17:00"}},
				},
			}, nil
		},
	}
	service := NewReservationService(
		&mockReservationRepository{},
		&mockUserStore{},
		facilities,
		&mockAvailability{},
		&mockGuard{},
		validator.NewReservationValidator(cfg.Log),
		pricing.New(),
		events.NopPublisher{},
		cfg,
	)

	// Next Monday 10:00, outside the Sunday-only schedule.
	start := time.Now().Add(time.Hour)
	for start.Weekday() != time.Monday {
		start = start.AddDate(0, 0, 1)
	}
	_, err := service.Create(context.Background(), testUserID, testFacilityID, start, start.Add(time.Hour))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestCreate_UnknownUser(t *testing.T) {
	cfg := testConfig()
	service := NewReservationService(
		&mockReservationRepository{},
		&mockUserStore{existsFunc: func(ctx context.Context, id string) (bool, error) { return false, nil }},
		&mockFacilityStore{},
		&mockAvailability{},
		&mockGuard{},
		validator.NewReservationValidator(cfg.Log),
		pricing.New(),
		events.NopPublisher{},
		cfg,
	)

	start := time.Now().Add(time.Hour)
	_, err := service.Create(context.Background(), testUserID, testFacilityID, start, start.Add(time.Hour))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestCancel_TerminalStateRejected(t *testing.T) {
	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return &model.Reservation{
				ID:         id,
				UserID:     testUserID,
				FacilityID: testFacilityID,
				Status:     model.ReservationCompleted,
			}, nil
		},
	}
	service := newTestService(repo, &mockAvailability{}, events.NopPublisher{})

	err := service.Cancel(context.Background(), testID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}

func TestCancel_PublishesEvent(t *testing.T) {
	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return &model.Reservation{
				ID:         id,
				UserID:     testUserID,
				FacilityID: testFacilityID,
				Status:     model.ReservationConfirmed,
			}, nil
		},
	}
	publisher := &capturingPublisher{}
	service := newTestService(repo, &mockAvailability{}, publisher)

	require.NoError(t, service.Cancel(context.Background(), testID))
	assert.Equal(t, []string{events.TypeReservationCancelled}, publisher.published)
}

func TestCompleteEnded_SweepsConfirmedOnly(t *testing.T) {
	now := time.Now()
	ended := []*model.Reservation{
		{ID: testID, UserID: testUserID, FacilityID: testFacilityID, EndTime: now.Add(-time.Hour), Status: model.ReservationConfirmed},
		{ID: "64f1a2b3c4d5e6f7a8b9c0d4", UserID: testUserID, FacilityID: testFacilityID, EndTime: now.Add(-time.Hour), Status: model.ReservationCancelled},
	}
	var updated []string
	repo := &mockReservationRepository{
		findConfirmedEndedBeforeFunc: func(ctx context.Context, t time.Time) ([]*model.Reservation, error) {
			return ended, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			updated = append(updated, id)
			return nil
		},
	}
	publisher := &capturingPublisher{}
	service := newTestService(repo, &mockAvailability{}, publisher)

	count, err := service.CompleteEnded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{testID}, updated)
	assert.Equal(t, []string{events.TypeReservationExpired}, publisher.published)
}

func TestListForUser_ParallelCountAndFind(t *testing.T) {
	repo := &mockReservationRepository{
		countByUserFunc: func(ctx context.Context, userID string) (int64, error) {
			time.Sleep(5 * time.Millisecond)
			return 3, nil
		},
		findByUserFunc: func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Reservation, error) {
			time.Sleep(5 * time.Millisecond)
			return []*model.Reservation{{ID: testID}}, nil
		},
	}
	service := newTestService(repo, &mockAvailability{}, events.NopPublisher{})

	for i := 0; i < 10; i++ {
		reservations, count, err := service.ListForUser(context.Background(), testUserID, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)
		assert.Len(t, reservations, 1)
	}
}
