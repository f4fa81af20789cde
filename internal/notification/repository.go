package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("notification not found")

// Repository persists notification events. Read-marker writes embed the viewer
// filter so eligibility is recomputed by the database at write time; an
// ineligible caller simply matches zero documents.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("notifications")}
}

func (r *Repository) Insert(ctx context.Context, e *Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	// fixed schema: targeting fields are always present, empty means N/A
	if e.TargetRoles == nil {
		e.TargetRoles = []string{}
	}
	if e.Recipients == nil {
		e.Recipients = []string{}
	}
	if e.ReadBy == nil {
		e.ReadBy = []string{}
	}
	_, err := r.collection.InsertOne(ctx, e)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var event Event
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &event, nil
}

// ListForViewer returns the events the viewer is eligible for, newest first.
func (r *Repository) ListForViewer(ctx context.Context, v Viewer, limit, offset int64) ([]*Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if offset > 0 {
		opts.SetSkip(offset)
	}
	cursor, err := r.collection.Find(ctx, ViewerFilter(v), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	var events []*Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return events, nil
}

func (r *Repository) UnreadCount(ctx context.Context, v Viewer) (int64, error) {
	filter := ViewerFilter(v)
	filter["read_by"] = bson.M{"$ne": v.UserID}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead adds the viewer to the event's read set. $addToSet keeps repeated
// calls idempotent; the embedded viewer filter makes the call a no-op when the
// viewer is not eligible for the event.
func (r *Repository) MarkRead(ctx context.Context, v Viewer, eventID string) error {
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return ErrNotFound
	}
	filter := ViewerFilter(v)
	filter["_id"] = oid
	_, err = r.collection.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{"read_by": v.UserID}})
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllRead marks every eligible, still-unread event in one bulk update.
func (r *Repository) MarkAllRead(ctx context.Context, v Viewer) (int64, error) {
	filter := ViewerFilter(v)
	filter["read_by"] = bson.M{"$ne": v.UserID}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$addToSet": bson.M{"read_by": v.UserID}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return res.ModifiedCount, nil
}

// MarkTypeRead is MarkAllRead narrowed to a set of types and, optionally, a
// class scope. With a scope, class-targeted events are restricted to that
// class while class-agnostic events still match.
func (r *Repository) MarkTypeRead(ctx context.Context, v Viewer, types []string, classScope string) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	filter := ViewerFilter(v)
	filter["type"] = bson.M{"$in": types}
	filter["read_by"] = bson.M{"$ne": v.UserID}
	if classScope != "" {
		filter["class_id"] = bson.M{"$in": []string{"", classScope}}
	}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$addToSet": bson.M{"read_by": v.UserID}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge hard-deletes events created before the cutoff, across all schools.
func (r *Repository) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": olderThan}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return res.DeletedCount, nil
}
