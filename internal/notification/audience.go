package notification

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// Viewer identifies the caller on query and read paths. The values come from
// verified JWT claims or the session cache, never from request bodies.
type Viewer struct {
	UserID   string
	SchoolID string
	Role     string
	ClassID  string
}

// Directory is the slice of the user/class collaborator the resolver needs.
type Directory interface {
	ActiveUserIDs(ctx context.Context, schoolID string) ([]string, error)
	UserIDsByRoles(ctx context.Context, schoolID string, roles []string) ([]string, error)
	ClassMemberIDs(ctx context.Context, schoolID, classID string) ([]string, error)
	MembersOf(ctx context.Context, schoolID string, userIDs []string) ([]string, error)
}

// Resolver turns an event's targeting fields into a concrete recipient set.
// The same rules exist in three shapes that must agree: Recipients (full set,
// fan-out), Event.VisibleTo (pure predicate, session cache checks) and
// ViewerFilter (bson predicate, list/read queries).
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

func matchRole(targets []string, role string) bool {
	for _, t := range targets {
		if t == role || t == RoleWildcard {
			return true
		}
	}
	return false
}

// Recipients computes the deduplicated recipient set for an event. Explicit
// recipients are unioned in for every mode, after being filtered to accounts
// that actually belong to the event's school.
func (r *Resolver) Recipients(ctx context.Context, e *Event) ([]string, error) {
	candidates := make(map[string]struct{})

	switch e.AudienceMode {
	case AudienceAll:
		ids, err := r.dir.ActiveUserIDs(ctx, e.SchoolID)
		if err != nil {
			return nil, fmt.Errorf("resolve all: %w", err)
		}
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
	case AudienceRole:
		var ids []string
		var err error
		if containsWildcard(e.TargetRoles) {
			ids, err = r.dir.ActiveUserIDs(ctx, e.SchoolID)
		} else {
			ids, err = r.dir.UserIDsByRoles(ctx, e.SchoolID, e.TargetRoles)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve roles: %w", err)
		}
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
	case AudienceClass:
		ids, err := r.dir.ClassMemberIDs(ctx, e.SchoolID, e.ClassID)
		if err != nil {
			return nil, fmt.Errorf("resolve class: %w", err)
		}
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
	case AudienceExplicit:
		// nothing beyond the explicit list below
	}

	validated, err := r.dir.MembersOf(ctx, e.SchoolID, e.Recipients)
	if err != nil {
		return nil, fmt.Errorf("validate explicit recipients: %w", err)
	}
	for _, id := range validated {
		candidates[id] = struct{}{}
	}

	out := make([]string, 0, len(candidates))
	for id := range candidates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func containsWildcard(roles []string) bool {
	for _, r := range roles {
		if r == RoleWildcard {
			return true
		}
	}
	return false
}

// VisibleTo is the eligibility predicate evaluated against a known profile.
// It must stay in lockstep with ViewerFilter below.
func (e *Event) VisibleTo(v Viewer) bool {
	if e.SchoolID != v.SchoolID {
		return false
	}
	for _, id := range e.Recipients {
		if id == v.UserID {
			return true
		}
	}
	switch e.AudienceMode {
	case AudienceAll:
		return true
	case AudienceRole:
		return matchRole(e.TargetRoles, v.Role)
	case AudienceClass:
		// users without a class never receive class-scoped events
		return v.ClassID != "" && e.ClassID == v.ClassID
	}
	return false
}

// ViewerFilter builds the single combined mongo filter for "events this viewer
// may see", so the list path never scans per event. The $or arms mirror the
// branches of VisibleTo exactly.
func ViewerFilter(v Viewer) bson.M {
	or := []bson.M{
		{"audience_mode": AudienceAll},
		{"audience_mode": AudienceRole, "target_roles": bson.M{"$in": []string{v.Role, RoleWildcard}}},
		{"recipients": v.UserID},
	}
	if v.ClassID != "" {
		or = append(or, bson.M{"audience_mode": AudienceClass, "class_id": v.ClassID})
	}
	return bson.M{"school_id": v.SchoolID, "$or": or}
}
