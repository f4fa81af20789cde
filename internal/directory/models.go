package directory

import "go.mongodb.org/mongo-driver/bson/primitive"

// Profile is the lean user view the notification engine works with.
type Profile struct {
	ID       primitive.ObjectID `bson:"_id"`
	SchoolID string             `bson:"school_id"`
	Name     string             `bson:"name"`
	Role     string             `bson:"role"`
	ClassID  string             `bson:"class_id"`
	Active   bool               `bson:"active"`
}

type Class struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SchoolID  string             `bson:"school_id"`
	ClassID   string             `bson:"class_id"` // stable identifier referenced by users and notifications
	Name      string             `bson:"name"`
	TeacherID string             `bson:"teacher_id"`
}

// GuardianLink ties a parent account to a student account. Parents inherit
// class-scoped notifications through these links.
type GuardianLink struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SchoolID  string             `bson:"school_id"`
	ParentID  string             `bson:"parent_id"`
	StudentID string             `bson:"student_id"`
}
