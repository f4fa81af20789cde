package directory

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository answers the membership questions audience resolution needs:
// who is in a school, who holds a role, and who belongs to a class
// (students directly, teachers by assignment, parents through guardian links).
type Repository struct {
	users     *mongo.Collection
	classes   *mongo.Collection
	guardians *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		users:     db.Collection("users"),
		classes:   db.Collection("classes"),
		guardians: db.Collection("guardians"),
	}
}

var idProjection = options.Find().SetProjection(bson.M{"_id": 1})

type idOnly struct {
	ID primitive.ObjectID `bson:"_id"`
}

func (r *Repository) findIDs(ctx context.Context, filter bson.M) ([]string, error) {
	cursor, err := r.users.Find(ctx, filter, idProjection)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var rows []idOnly
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.Hex())
	}
	return ids, nil
}

func (r *Repository) ActiveUserIDs(ctx context.Context, schoolID string) ([]string, error) {
	return r.findIDs(ctx, bson.M{"school_id": schoolID, "active": true})
}

func (r *Repository) UserIDsByRoles(ctx context.Context, schoolID string, roles []string) ([]string, error) {
	return r.findIDs(ctx, bson.M{
		"school_id": schoolID,
		"active":    true,
		"role":      bson.M{"$in": roles},
	})
}

// ClassMemberIDs resolves every account attached to a class: its students and
// teachers by class assignment, the class record's own teacher, and the
// guardians of those students.
func (r *Repository) ClassMemberIDs(ctx context.Context, schoolID, classID string) ([]string, error) {
	members, err := r.findIDs(ctx, bson.M{
		"school_id": schoolID,
		"active":    true,
		"class_id":  classID,
	})
	if err != nil {
		return nil, err
	}

	var class Class
	err = r.classes.FindOne(ctx, bson.M{"school_id": schoolID, "class_id": classID}).Decode(&class)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to load class: %w", err)
	}
	if class.TeacherID != "" {
		members = append(members, class.TeacherID)
	}

	students, err := r.findIDs(ctx, bson.M{
		"school_id": schoolID,
		"active":    true,
		"class_id":  classID,
		"role":      "student",
	})
	if err != nil {
		return nil, err
	}
	if len(students) > 0 {
		cursor, err := r.guardians.Find(ctx, bson.M{
			"school_id":  schoolID,
			"student_id": bson.M{"$in": students},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query guardians: %w", err)
		}
		var links []GuardianLink
		if err := cursor.All(ctx, &links); err != nil {
			return nil, fmt.Errorf("failed to decode guardians: %w", err)
		}
		for _, link := range links {
			members = append(members, link.ParentID)
		}
	}

	return members, nil
}

// MembersOf filters the given user ids down to accounts that belong to the
// school. Explicit recipient lists pass through here so a notification can
// never reference users outside its tenant.
func (r *Repository) MembersOf(ctx context.Context, schoolID string, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	oids := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue // malformed ids are dropped, not fatal
		}
		oids = append(oids, oid)
	}
	return r.findIDs(ctx, bson.M{
		"school_id": schoolID,
		"_id":       bson.M{"$in": oids},
	})
}

func (r *Repository) Profile(ctx context.Context, userID string) (*Profile, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q", userID)
	}
	var profile Profile
	err = r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}
