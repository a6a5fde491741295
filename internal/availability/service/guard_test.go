package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"parkhub/pkg/config"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/logger"
	"parkhub/pkg/model"
)

type mockLockRepository struct {
	createFunc func(ctx context.Context, lock *model.AdmissionLock) (*model.AdmissionLock, error)
	deleteFunc func(ctx context.Context, facilityID, owner string) error
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.AdmissionLock) (*model.AdmissionLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, facilityID, owner string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, facilityID, owner)
	}
	return nil
}

func guardConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		AdmissionLockTTL: 10 * time.Second,
	}
}

func TestGuardLock_DistinctOwnerTokens(t *testing.T) {
	var created []*model.AdmissionLock
	repo := &mockLockRepository{
		createFunc: func(ctx context.Context, lock *model.AdmissionLock) (*model.AdmissionLock, error) {
			created = append(created, lock)
			return lock, nil
		},
	}
	guard := NewAdmissionGuard(repo, guardConfig())

	first, err := guard.Lock(context.Background(), testFacilityID)
	require.NoError(t, err)
	second, err := guard.Lock(context.Background(), testFacilityID)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
	require.Len(t, created, 2)
	assert.Equal(t, testFacilityID, created[0].ID)
	assert.Equal(t, first, created[0].Owner)
}

func TestGuardLock_HeldLockIsRetryableConflict(t *testing.T) {
	repo := &mockLockRepository{
		createFunc: func(ctx context.Context, lock *model.AdmissionLock) (*model.AdmissionLock, error) {
			return nil, mongo.WriteException{
				WriteErrors: mongo.WriteErrors{{Code: 11000}},
			}
		},
	}
	guard := NewAdmissionGuard(repo, guardConfig())

	_, err := guard.Lock(context.Background(), testFacilityID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.True(t, appErr.Retryable())
}

func TestGuardLock_RepositoryFailure(t *testing.T) {
	repo := &mockLockRepository{
		createFunc: func(ctx context.Context, lock *model.AdmissionLock) (*model.AdmissionLock, error) {
			return nil, errors.New("connection reset")
		},
	}
	guard := NewAdmissionGuard(repo, guardConfig())

	_, err := guard.Lock(context.Background(), testFacilityID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInternal, appErr.Code)
}

func TestGuardUnlock_PassesOwnerToken(t *testing.T) {
	var gotFacility, gotOwner string
	repo := &mockLockRepository{
		deleteFunc: func(ctx context.Context, facilityID, owner string) error {
			gotFacility = facilityID
			gotOwner = owner
			return nil
		},
	}
	guard := NewAdmissionGuard(repo, guardConfig())

	guard.Unlock(context.Background(), testFacilityID, "owner-token")
	assert.Equal(t, testFacilityID, gotFacility)
	assert.Equal(t, "owner-token", gotOwner)
}
