package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"parkhub/internal/availability/repository"
	"parkhub/pkg/config"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/model"
)

// AdmissionGuard serializes admission decisions per facility through the
// advisory lock collection. Lock returns an owner token that Unlock must
// present, so an expired holder cannot release a successor's lock.
type AdmissionGuard interface {
	Lock(ctx context.Context, facilityID string) (string, error)
	Unlock(ctx context.Context, facilityID, owner string)
}

type admissionGuard struct {
	lockRepo repository.AdmissionLockRepository
	cfg      *config.Config
}

func NewAdmissionGuard(lockRepo repository.AdmissionLockRepository, cfg *config.Config) AdmissionGuard {
	return &admissionGuard{
		lockRepo: lockRepo,
		cfg:      cfg,
	}
}

func (g *admissionGuard) Lock(ctx context.Context, facilityID string) (string, error) {
	owner := uuid.New().String()

	lock := &model.AdmissionLock{
		ID:        facilityID,
		Owner:     owner,
		ExpiresAt: time.Now().Add(g.cfg.AdmissionLockTTL),
	}

	if _, err := g.lockRepo.Create(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("Another admission for this facility is in progress. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire admission lock", err)
	}

	return owner, nil
}

func (g *admissionGuard) Unlock(ctx context.Context, facilityID, owner string) {
	if err := g.lockRepo.Delete(ctx, facilityID, owner); err != nil {
		g.cfg.Log.Warn("Failed to release admission lock",
			"facility_id", facilityID,
			"error", err,
		)
	}
}
