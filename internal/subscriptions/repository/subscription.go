package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	subscriptionserrors "parkhub/internal/subscriptions/errors"
	"parkhub/pkg/config"
	mongotx "parkhub/pkg/db/mongo"
	"parkhub/pkg/model"
)

const (
	CollectionName = "Subscriptions"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *model.Subscription) error
	FindByID(ctx context.Context, id string) (*model.Subscription, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Subscription, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	FindActiveByFacility(ctx context.Context, facilityID string) ([]*model.Subscription, error)
	FindActiveForUserAtFacility(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error)
	FindActiveEndedBefore(ctx context.Context, t time.Time) ([]*model.Subscription, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSubscriptionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSubscriptionRepository(cfg *config.Config) SubscriptionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSubscriptionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoSubscriptionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSubscriptionRepository) Create(ctx context.Context, subscription *model.Subscription) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	subscription.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, subscription)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		subscription.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSubscriptionRepository) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", subscriptionserrors.ErrInvalidID, id)
	}

	var subscription model.Subscription
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&subscription)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, subscriptionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	return &subscription, nil
}

func (r *mongoSubscriptionRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", subscriptionserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if result.MatchedCount == 0 {
		return subscriptionserrors.ErrNotFound
	}

	return nil
}

func (r *mongoSubscriptionRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subscriptions []*model.Subscription
	if err = cursor.All(ctx, &subscriptions); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	return subscriptions, nil
}

func (r *mongoSubscriptionRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

func (r *mongoSubscriptionRepository) FindActiveByFacility(ctx context.Context, facilityID string) ([]*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"facility_id": facilityID,
		"status":      model.SubscriptionActive,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find active subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subscriptions []*model.Subscription
	if err = cursor.All(ctx, &subscriptions); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	return subscriptions, nil
}

func (r *mongoSubscriptionRepository) FindActiveForUserAtFacility(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"user_id":     userID,
		"facility_id": facilityID,
		"status":      model.SubscriptionActive,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find user subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subscriptions []*model.Subscription
	if err = cursor.All(ctx, &subscriptions); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	return subscriptions, nil
}

func (r *mongoSubscriptionRepository) FindActiveEndedBefore(ctx context.Context, t time.Time) ([]*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":   model.SubscriptionActive,
		"end_date": bson.M{"$lt": t},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find ended subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subscriptions []*model.Subscription
	if err = cursor.All(ctx, &subscriptions); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	return subscriptions, nil
}

func (r *mongoSubscriptionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
