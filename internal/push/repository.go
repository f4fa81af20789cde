package push

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("push_endpoints")}
}

// Upsert registers or refreshes a subscription, keyed by the remote endpoint
// identity. A previously disabled endpoint that re-registers is re-enabled.
func (r *Repository) Upsert(ctx context.Context, sub *Subscription) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"user_id":   sub.UserID,
			"school_id": sub.SchoolID,
			"channel":   sub.Channel,
			"p256dh":    sub.P256dh,
			"auth":      sub.Auth,
			"disabled":  false,
			"last_seen": now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"endpoint": sub.Endpoint}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert push endpoint: %w", err)
	}
	return nil
}

// ActiveByUserIDs loads the non-disabled subscriptions for the given users.
func (r *Repository) ActiveByUserIDs(ctx context.Context, userIDs []string) ([]Subscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{
		"user_id":  bson.M{"$in": userIDs},
		"disabled": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load push endpoints: %w", err)
	}
	var subs []Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("failed to decode push endpoints: %w", err)
	}
	return subs, nil
}

// Disable marks an endpoint permanently invalid. The row is kept for audit
// and possible re-enable on re-registration.
func (r *Repository) Disable(ctx context.Context, endpoint string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"endpoint": endpoint},
		bson.M{"$set": bson.M{"disabled": true}})
	if err != nil {
		return fmt.Errorf("failed to disable push endpoint: %w", err)
	}
	return nil
}
