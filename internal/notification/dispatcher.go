package notification

import (
	"context"
	"time"

	"SchoolBeacon/internal/metrics"
	"SchoolBeacon/internal/presence"
	"SchoolBeacon/internal/push"

	"go.uber.org/zap"
)

// LiveSession is one connected session eligible for immediate emission.
type LiveSession interface {
	Viewer() Viewer
	Send(v interface{}) error
}

// SessionSource is the read-only view of the connected-session directory.
type SessionSource interface {
	SessionsFor(userID string) []LiveSession
}

// PushSender is the async fallback channel for offline recipients.
type PushSender interface {
	SendBatch(ctx context.Context, userIDs []string, title, body string, data map[string]string) (push.Report, error)
}

// Dispatcher routes a persisted event to its recipients: live sessions get an
// immediate emission, everyone else is batched to the push gateway. Dispatch
// runs detached from the request that created the event; nothing in here may
// fail that request.
type Dispatcher struct {
	sessions SessionSource
	push     PushSender
	logger   *zap.Logger
}

func NewDispatcher(sessions SessionSource, pushSender PushSender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sessions: sessions, push: pushSender, logger: logger}
}

// Dispatch delivers the event to the resolved recipient set. Callers run it
// on its own goroutine; every per-recipient error is logged and swallowed.
func (d *Dispatcher) Dispatch(e *Event, recipients []string) {
	payload := LivePayload{
		Kind:       "notification",
		ID:         e.ID.Hex(),
		Title:      e.Title,
		Message:    e.Message,
		Type:       e.Type,
		SenderID:   e.SenderID,
		SenderName: e.SenderName,
		CreatedAt:  e.CreatedAt,
	}

	var offline []string
	for _, userID := range recipients {
		sessions := d.sessions.SessionsFor(userID)

		// The cached profile may be stale; the event goes to a session only
		// when its tenant matches and the cached role/class still qualify.
		live := false
		for _, session := range sessions {
			v := session.Viewer()
			if v.SchoolID != e.SchoolID || !e.VisibleTo(v) {
				continue
			}
			live = true
			if err := session.Send(payload); err != nil {
				// the user catches up from the store on their next poll
				metrics.LiveFailed.Inc()
				d.logger.Warn("live emission failed",
					zap.String("event_id", payload.ID),
					zap.String("user_id", userID),
					zap.Error(err))
				continue
			}
			metrics.LiveEmitted.Inc()
		}
		if !live {
			offline = append(offline, userID)
		}
	}

	if len(offline) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	report, err := d.push.SendBatch(ctx, offline, e.Title, e.Message, map[string]string{
		"event_id":  payload.ID,
		"type":      e.Type,
		"school_id": e.SchoolID,
	})
	if err != nil {
		d.logger.Error("push batch failed",
			zap.String("event_id", payload.ID),
			zap.Int("recipients", len(offline)),
			zap.Error(err))
		return
	}
	if report.Failed > 0 || report.Disabled > 0 {
		d.logger.Warn("push batch degraded",
			zap.String("event_id", payload.ID),
			zap.Int("sent", report.Sent),
			zap.Int("disabled", report.Disabled),
			zap.Int("failed", report.Failed))
	}
}

// presenceSource adapts the presence registry to the SessionSource interface.
type presenceSource struct {
	registry *presence.Registry
}

func NewPresenceSource(registry *presence.Registry) SessionSource {
	return presenceSource{registry: registry}
}

func (p presenceSource) SessionsFor(userID string) []LiveSession {
	snapshot := p.registry.SnapshotFor(userID)
	if len(snapshot) == 0 {
		return nil
	}
	out := make([]LiveSession, len(snapshot))
	for i, s := range snapshot {
		out[i] = liveSession{s}
	}
	return out
}

type liveSession struct {
	*presence.Session
}

func (l liveSession) Viewer() Viewer {
	return Viewer{
		UserID:   l.Session.UserID,
		SchoolID: l.Session.SchoolID,
		Role:     l.Session.Role,
		ClassID:  l.Session.ClassID,
	}
}
