package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	subscriptionserrors "parkhub/internal/subscriptions/errors"
	"parkhub/internal/subscriptions/validator"
	"parkhub/pkg/config"
	mongotx "parkhub/pkg/db/mongo"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/events"
	"parkhub/pkg/logger"
	"parkhub/pkg/model"
	"parkhub/pkg/pricing"
)

const (
	testUserID      = "64f1a2b3c4d5e6f7a8b9c0d2"
	testOtherUserID = "64f1a2b3c4d5e6f7a8b9c0d5"
	testFacilityID  = "64f1a2b3c4d5e6f7a8b9c0d1"
	testID          = "64f1a2b3c4d5e6f7a8b9c0d3"
)

type mockSubscriptionRepository struct {
	createFunc                      func(ctx context.Context, subscription *model.Subscription) error
	findByIDFunc                    func(ctx context.Context, id string) (*model.Subscription, error)
	updateStatusFunc                func(ctx context.Context, id string, status string) error
	findByUserFunc                  func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Subscription, error)
	countByUserFunc                 func(ctx context.Context, userID string) (int64, error)
	findActiveByFacilityFunc        func(ctx context.Context, facilityID string) ([]*model.Subscription, error)
	findActiveForUserAtFacilityFunc func(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error)
	findActiveEndedBeforeFunc       func(ctx context.Context, t time.Time) ([]*model.Subscription, error)
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, subscription *model.Subscription) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, subscription)
	}
	return nil
}

func (m *mockSubscriptionRepository) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, subscriptionserrors.ErrNotFound
}

func (m *mockSubscriptionRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockSubscriptionRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Subscription, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockSubscriptionRepository) FindActiveByFacility(ctx context.Context, facilityID string) ([]*model.Subscription, error) {
	if m.findActiveByFacilityFunc != nil {
		return m.findActiveByFacilityFunc(ctx, facilityID)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) FindActiveForUserAtFacility(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error) {
	if m.findActiveForUserAtFacilityFunc != nil {
		return m.findActiveForUserAtFacilityFunc(ctx, userID, facilityID)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) FindActiveEndedBefore(ctx context.Context, t time.Time) ([]*model.Subscription, error) {
	if m.findActiveEndedBeforeFunc != nil {
		return m.findActiveEndedBeforeFunc(ctx, t)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
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

func newTestService(repo *mockSubscriptionRepository, facilities *mockFacilityStore, publisher events.Publisher) SubscriptionService {
	cfg := testConfig()
	return NewSubscriptionService(
		repo,
		&mockUserStore{},
		facilities,
		&mockGuard{},
		validator.NewSubscriptionValidator(cfg.Log),
		pricing.New(),
		publisher,
		cfg,
	)
}

func weekdaySlots(day string, slots ...model.Slot) map[string][]model.Slot {
	return map[string][]model.Slot{day: slots}
}

func futureMonday() time.Time {
	d := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour).Add(24 * time.Hour)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func TestCreate_Success(t *testing.T) {
	var created *model.Subscription
	repo := &mockSubscriptionRepository{
		createFunc: func(ctx context.Context, subscription *model.Subscription) error {
			subscription.ID = testID
			created = subscription
			return nil
		},
	}
	publisher := &capturingPublisher{}
	service := newTestService(repo, &mockFacilityStore{}, publisher)

	start := futureMonday()
	subscription, err := service.Create(
		context.Background(),
		testUserID,
		testFacilityID,
		weekdaySlots("1", model.Slot{Start: "09:00", End: "17:00"}),
		3,
		start,
	)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, model.SubscriptionActive, subscription.Status)
	assert.Equal(t, start.AddDate(0, 3, 0), subscription.EndDate)
	// 8h/week at 10/h: 80 x 52/12.
	assert.InDelta(t, 346.67, subscription.MonthlyAmount, 1e-9)
	assert.InDelta(t, 3*346.67, subscription.TotalAmount, 1e-9)
	assert.Equal(t, []string{events.TypeSubscriptionCreated}, publisher.published)
}

func TestCreate_SlotsOutsideOpeningHours(t *testing.T) {
	facilities := &mockFacilityStore{
		facility: &model.Facility{
			ID:         testFacilityID,
			OwnerID:    testUserID,
			Name:       "Office Garage",
			Capacity:   10,
			HourlyRate: 10,
			OpeningHours: map[string][]model.HoursWindow{
				"1": {{Open: "08:00", Close: "18:00"}},
			},
		},
	}
	service := newTestService(&mockSubscriptionRepository{}, facilities, events.NopPublisher{})

	// The slot spills one hour past closing.
	_, err := service.Create(
		context.Background(),
		testUserID,
		testFacilityID,
		weekdaySlots("1", model.Slot{Start: "09:00", End: "19:00"}),
		3,
		futureMonday(),
	)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestCreate_SecondActiveSubscriptionRejected(t *testing.T) {
	repo := &mockSubscriptionRepository{
		findActiveForUserAtFacilityFunc: func(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error) {
			return []*model.Subscription{{ID: testID, Status: model.SubscriptionActive}}, nil
		},
	}
	service := newTestService(repo, &mockFacilityStore{}, events.NopPublisher{})

	_, err := service.Create(
		context.Background(),
		testUserID,
		testFacilityID,
		weekdaySlots("1", model.Slot{Start: "09:00", End: "17:00"}),
		3,
		futureMonday(),
	)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.True(t, appErr.Retryable())
}

func TestCreate_SlotCapacityConflict(t *testing.T) {
	start := futureMonday()

	// One space, already committed to another driver for an overlapping
	// weekly slot over an overlapping date range.
	existing := &model.Subscription{
		ID:          "64f1a2b3c4d5e6f7a8b9c0d6",
		UserID:      testOtherUserID,
		FacilityID:  testFacilityID,
		WeeklySlots: weekdaySlots("1", model.Slot{Start: "08:00", End: "12:00"}),
		StartDate:   start.AddDate(0, -1, 0),
		EndDate:     start.AddDate(0, 5, 0),
		Status:      model.SubscriptionActive,
	}
	repo := &mockSubscriptionRepository{
		findActiveByFacilityFunc: func(ctx context.Context, facilityID string) ([]*model.Subscription, error) {
			return []*model.Subscription{existing}, nil
		},
	}
	facilities := &mockFacilityStore{
		facility: &model.Facility{
			ID:         testFacilityID,
			OwnerID:    testUserID,
			Name:       "Tiny Garage",
			Capacity:   1,
			HourlyRate: 10,
		},
	}
	service := newTestService(repo, facilities, events.NopPublisher{})

	_, err := service.Create(
		context.Background(),
		testUserID,
		testFacilityID,
		weekdaySlots("1", model.Slot{Start: "10:00", End: "14:00"}),
		3,
		start,
	)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	// Same weekday but disjoint hours admits fine.
	_, err = service.Create(
		context.Background(),
		testUserID,
		testFacilityID,
		weekdaySlots("1", model.Slot{Start: "13:00", End: "17:00"}),
		3,
		start,
	)
	assert.NoError(t, err)
}

func TestCancel_OnlyActive(t *testing.T) {
	repo := &mockSubscriptionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Subscription, error) {
			return &model.Subscription{
				ID:         id,
				UserID:     testUserID,
				FacilityID: testFacilityID,
				Status:     model.SubscriptionExpired,
			}, nil
		},
	}
	service := newTestService(repo, &mockFacilityStore{}, events.NopPublisher{})

	err := service.Cancel(context.Background(), testID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}

func TestExpireEnded_Sweep(t *testing.T) {
	ended := []*model.Subscription{
		{ID: testID, UserID: testUserID, FacilityID: testFacilityID, Status: model.SubscriptionActive},
	}
	var updated []string
	repo := &mockSubscriptionRepository{
		findActiveEndedBeforeFunc: func(ctx context.Context, t time.Time) ([]*model.Subscription, error) {
			return ended, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, status string) error {
			updated = append(updated, id)
			return nil
		},
	}
	publisher := &capturingPublisher{}
	service := newTestService(repo, &mockFacilityStore{}, publisher)

	count, err := service.ExpireEnded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{testID}, updated)
	assert.Equal(t, []string{events.TypeSubscriptionExpired}, publisher.published)
}
