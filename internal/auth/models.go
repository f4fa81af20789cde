package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles recognised across the platform. Parents are linked to students via
// guardian records owned by the directory package.
const (
	RoleAdmin   = "admin"
	RoleStaff   = "staff"
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleParent  = "parent"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	SchoolID     string             `bson:"school_id"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	ClassID      string             `bson:"class_id"` // students and teachers; parents carry the eldest linked child's class
	Active       bool               `bson:"active"`   // false for graduated/withdrawn accounts
	Verified     bool               `bson:"verified"`
	ResetToken   string             `bson:"reset_token,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type RegisterRequest struct {
	SchoolID string `json:"school_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	ClassID  string `json:"class_id"`
}

type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
