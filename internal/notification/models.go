package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AudienceMode is the targeting strategy of a notification.
type AudienceMode string

const (
	AudienceAll      AudienceMode = "all"      // every member of the school
	AudienceRole     AudienceMode = "role"     // members holding one of TargetRoles
	AudienceClass    AudienceMode = "class"    // members of ClassID, plus any explicit recipients
	AudienceExplicit AudienceMode = "explicit" // only the listed recipients
)

// RoleWildcard inside TargetRoles matches every role. Kept for tolerance with
// records written by older clients that used it instead of AudienceAll.
const RoleWildcard = "all"

// Notification types. Type-scoped read operations filter on these.
const (
	TypeGeneral             = "general"
	TypeAnnouncement        = "announcement"
	TypeAttendance          = "attendance"
	TypeAssignment          = "assignment"
	TypeFee                 = "fee"
	TypeAgenda              = "agenda"
	TypeExamReport          = "exam-report"
	TypeAccessResetRequest  = "access-reset-request"
	TypeAccessResetApproved = "access-reset-approved"
	TypeAccountVerification = "account-verification"
)

// ResourceRef points at the business object a notification originated from.
type ResourceRef struct {
	Kind string `bson:"kind" json:"kind"`
	ID   string `bson:"id" json:"id"`
}

// Event is the persisted notification record. Every targeting field is always
// present; empty values mean "not applicable" for the audience mode in effect,
// so no query path needs to probe for missing fields.
type Event struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SchoolID     string             `bson:"school_id" json:"school_id"`
	Title        string             `bson:"title" json:"title"`
	Message      string             `bson:"message" json:"message"`
	Type         string             `bson:"type" json:"type"`
	AudienceMode AudienceMode       `bson:"audience_mode" json:"audience_mode"`
	TargetRoles  []string           `bson:"target_roles" json:"target_roles"`
	ClassID      string             `bson:"class_id" json:"class_id"`
	Recipients   []string           `bson:"recipients" json:"recipients"` // explicit recipients, honored in every mode
	SenderID     string             `bson:"sender_id" json:"sender_id"`
	SenderName   string             `bson:"sender_name" json:"sender_name"`
	Resource     *ResourceRef       `bson:"resource,omitempty" json:"resource,omitempty"`
	ReadBy       []string           `bson:"read_by" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// Item is an Event annotated for a specific viewer.
type Item struct {
	*Event
	IsRead bool `json:"is_read"`
}

// LivePayload is the normalized shape emitted over the live channel.
type LivePayload struct {
	Kind       string    `json:"kind"` // always "notification"
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func ValidAudienceMode(mode AudienceMode) bool {
	switch mode {
	case AudienceAll, AudienceRole, AudienceClass, AudienceExplicit:
		return true
	}
	return false
}
