package push

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel is the kind of remote push endpoint.
type Channel string

const (
	ChannelMobile  Channel = "mobile"  // SNS platform endpoint ARN
	ChannelBrowser Channel = "browser" // Web Push subscription
)

// Subscription is one remote push endpoint owned by a user. A user may hold
// many (phones, browsers); the unique key is the endpoint identity, so
// re-registration updates in place instead of duplicating. Rows are disabled
// rather than deleted when a gateway reports them permanently gone.
type Subscription struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	SchoolID  string             `bson:"school_id"`
	Channel   Channel            `bson:"channel"`
	Endpoint  string             `bson:"endpoint"` // platform endpoint ARN or subscription URL
	P256dh    string             `bson:"p256dh,omitempty"`
	Auth      string             `bson:"auth,omitempty"`
	Disabled  bool               `bson:"disabled"`
	LastSeen  time.Time          `bson:"last_seen"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Report summarises one SendBatch call. Callers log it; a non-empty Failed
// count never fails the request that triggered the batch.
type Report struct {
	Sent     int `json:"sent"`
	Disabled int `json:"disabled"`
	Failed   int `json:"failed"`
}

func (r Report) Add(other Report) Report {
	return Report{
		Sent:     r.Sent + other.Sent,
		Disabled: r.Disabled + other.Disabled,
		Failed:   r.Failed + other.Failed,
	}
}
