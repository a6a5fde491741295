package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"parkhub/pkg/config"
	"parkhub/pkg/model"
)

const (
	CollectionName = "Admission_locks"
)

// AdmissionLockRepository provides operations for per-facility advisory locks
type AdmissionLockRepository interface {
	Create(ctx context.Context, lock *model.AdmissionLock) (*model.AdmissionLock, error)
	Delete(ctx context.Context, facilityID, owner string) error
}

type mongoAdmissionLockRepository struct {
	collection *mongo.Collection
}

func NewAdmissionLockRepository(cfg *config.Config) AdmissionLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAdmissionLockRepository{
		collection: db.Collection(CollectionName),
	}
}

// Returns duplicate key error if the facility is already locked
func (r *mongoAdmissionLockRepository) Create(ctx context.Context, lock *model.AdmissionLock) (*model.AdmissionLock, error) {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		return nil, err
	}

	return lock, nil
}

// Delete releases the lock. The owner filter keeps a holder whose lock
// already expired from deleting a lock someone else has since acquired.
func (r *mongoAdmissionLockRepository) Delete(ctx context.Context, facilityID, owner string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": facilityID, "owner": owner})
	return err
}
