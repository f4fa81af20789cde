package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SchoolBeacon/internal/directory"
	"SchoolBeacon/internal/metrics"

	"go.uber.org/zap"
)

var ErrForbidden = errors.New("forbidden")

// Store is the record-store surface the service orchestrates.
type Store interface {
	Insert(ctx context.Context, e *Event) error
	FindByID(ctx context.Context, id string) (*Event, error)
	ListForViewer(ctx context.Context, v Viewer, limit, offset int64) ([]*Event, error)
	UnreadCount(ctx context.Context, v Viewer) (int64, error)
	MarkRead(ctx context.Context, v Viewer, eventID string) error
	MarkAllRead(ctx context.Context, v Viewer) (int64, error)
	MarkTypeRead(ctx context.Context, v Viewer, types []string, classScope string) (int64, error)
	Delete(ctx context.Context, id string) error
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// ProfileSource looks up the lean profile used for sender summaries.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*directory.Profile, error)
}

// EventDispatcher is the detached delivery path.
type EventDispatcher interface {
	Dispatch(e *Event, recipients []string)
}

// Service implements the boundary operations business features call. The
// contract callers rely on: once Create returns, the event is persisted and
// queryable; delivery happens after, asynchronously, and its failures never
// reach the caller.
type Service struct {
	store      Store
	resolver   *Resolver
	profiles   ProfileSource
	dispatcher EventDispatcher
	logger     *zap.Logger
}

func NewService(store Store, resolver *Resolver, profiles ProfileSource, dispatcher EventDispatcher, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		resolver:   resolver,
		profiles:   profiles,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type CreateInput struct {
	SchoolID     string
	Title        string
	Message      string
	Type         string
	AudienceMode AudienceMode
	TargetRoles  []string
	ClassID      string
	Recipients   []string
	SenderID     string
	Resource     *ResourceRef
}

func (in *CreateInput) validate() error {
	if in.SchoolID == "" {
		return errors.New("School is required")
	}
	if in.Title == "" || in.Message == "" {
		return errors.New("Title and message are required")
	}
	if !ValidAudienceMode(in.AudienceMode) {
		return fmt.Errorf("Unknown audience mode %q", in.AudienceMode)
	}
	if in.AudienceMode == AudienceClass && in.ClassID == "" {
		return errors.New("Class is required for class-scoped notifications")
	}
	if in.AudienceMode == AudienceRole && len(in.TargetRoles) == 0 {
		return errors.New("Target roles are required for role-scoped notifications")
	}
	if in.AudienceMode == AudienceExplicit && len(in.Recipients) == 0 {
		return errors.New("Recipients are required for explicit notifications")
	}
	return nil
}

// Create validates, persists and acknowledges the event, then hands it to the
// dispatcher on a detached goroutine.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	event := &Event{
		SchoolID:     in.SchoolID,
		Title:        in.Title,
		Message:      in.Message,
		Type:         in.Type,
		AudienceMode: in.AudienceMode,
		TargetRoles:  in.TargetRoles,
		ClassID:      in.ClassID,
		Recipients:   in.Recipients,
		SenderID:     in.SenderID,
		Resource:     in.Resource,
		CreatedAt:    time.Now(),
	}
	if event.Type == "" {
		event.Type = TypeGeneral
	}
	if in.SenderID != "" {
		sender, err := s.profiles.Profile(ctx, in.SenderID)
		if err != nil {
			s.logger.Warn("sender lookup failed", zap.String("sender_id", in.SenderID), zap.Error(err))
		} else if sender != nil {
			event.SenderName = sender.Name
		}
	}

	recipients, err := s.resolver.Recipients(ctx, event)
	if err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, event); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.Inc()

	go s.dispatcher.Dispatch(event, recipients)

	return event, nil
}

// NotifyAccessReset feeds the access-reset workflow through the engine: the
// request stage alerts the school's administrators, the approved stage goes
// back to the affected user.
func (s *Service) NotifyAccessReset(ctx context.Context, schoolID, userID, stage string) error {
	name := userID
	profile, err := s.profiles.Profile(ctx, userID)
	if err == nil && profile != nil {
		name = profile.Name
	}

	var in CreateInput
	switch stage {
	case "request":
		in = CreateInput{
			SchoolID:     schoolID,
			Title:        "Access reset requested",
			Message:      fmt.Sprintf("%s requested an access reset.", name),
			Type:         TypeAccessResetRequest,
			AudienceMode: AudienceRole,
			TargetRoles:  []string{"admin"},
			Resource:     &ResourceRef{Kind: "user", ID: userID},
		}
	case "approved":
		in = CreateInput{
			SchoolID:     schoolID,
			Title:        "Access reset completed",
			Message:      "Your account access has been reset.",
			Type:         TypeAccessResetApproved,
			AudienceMode: AudienceExplicit,
			Recipients:   []string{userID},
		}
	default:
		return fmt.Errorf("unknown access reset stage %q", stage)
	}

	_, err = s.Create(ctx, in)
	return err
}

// NotifyAccountVerification mirrors the access-reset flow for new accounts:
// the pending stage alerts the school's administrators, the verified stage
// confirms back to the account owner.
func (s *Service) NotifyAccountVerification(ctx context.Context, schoolID, userID, stage string) error {
	name := userID
	profile, err := s.profiles.Profile(ctx, userID)
	if err == nil && profile != nil {
		name = profile.Name
	}

	var in CreateInput
	switch stage {
	case "pending":
		in = CreateInput{
			SchoolID:     schoolID,
			Title:        "Account awaiting verification",
			Message:      fmt.Sprintf("%s registered and has not verified their email yet.", name),
			Type:         TypeAccountVerification,
			AudienceMode: AudienceRole,
			TargetRoles:  []string{"admin"},
			Resource:     &ResourceRef{Kind: "user", ID: userID},
		}
	case "verified":
		in = CreateInput{
			SchoolID:     schoolID,
			Title:        "Account verified",
			Message:      "Your email address has been verified.",
			Type:         TypeAccountVerification,
			AudienceMode: AudienceExplicit,
			Recipients:   []string{userID},
		}
	default:
		return fmt.Errorf("unknown account verification stage %q", stage)
	}

	_, err = s.Create(ctx, in)
	return err
}

// List returns the viewer's eligible events, newest first, annotated with
// their read state.
func (s *Service) List(ctx context.Context, v Viewer, limit, offset int64) ([]Item, error) {
	events, err := s.store.ListForViewer(ctx, v, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(events))
	for _, event := range events {
		read := false
		for _, id := range event.ReadBy {
			if id == v.UserID {
				read = true
				break
			}
		}
		items = append(items, Item{Event: event, IsRead: read})
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, v Viewer) (int64, error) {
	return s.store.UnreadCount(ctx, v)
}

func (s *Service) MarkRead(ctx context.Context, v Viewer, eventID string) error {
	return s.store.MarkRead(ctx, v, eventID)
}

func (s *Service) MarkAllRead(ctx context.Context, v Viewer) (int64, error) {
	return s.store.MarkAllRead(ctx, v)
}

func (s *Service) MarkTypeRead(ctx context.Context, v Viewer, types []string, classScope string) (int64, error) {
	return s.store.MarkTypeRead(ctx, v, types, classScope)
}

// Delete removes an event. Only the sender, a school administrator or an
// explicit recipient may delete, and never across schools.
func (s *Service) Delete(ctx context.Context, v Viewer, eventID string) error {
	event, err := s.store.FindByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.SchoolID != v.SchoolID {
		return ErrForbidden
	}
	allowed := v.Role == "admin" || (event.SenderID != "" && event.SenderID == v.UserID)
	if !allowed {
		for _, id := range event.Recipients {
			if id == v.UserID {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return ErrForbidden
	}
	return s.store.Delete(ctx, eventID)
}

// PurgeOlderThan hard-deletes events past the retention window.
func (s *Service) PurgeOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.store.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("purged notifications", zap.Int64("deleted", deleted), zap.Int("retention_days", retentionDays))
	}
	return deleted, nil
}
