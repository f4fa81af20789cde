package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

// ==========================
// Fake directory
// ==========================

type fakeDirectory struct {
	active  map[string][]string            // school -> active user ids
	byRole  map[string]map[string][]string // school -> role -> user ids
	byClass map[string]map[string][]string // school -> class -> member ids
	members map[string]map[string]bool     // school -> user id -> present
}

func (f *fakeDirectory) ActiveUserIDs(_ context.Context, schoolID string) ([]string, error) {
	return f.active[schoolID], nil
}

func (f *fakeDirectory) UserIDsByRoles(_ context.Context, schoolID string, roles []string) ([]string, error) {
	var out []string
	for _, role := range roles {
		out = append(out, f.byRole[schoolID][role]...)
	}
	return out, nil
}

func (f *fakeDirectory) ClassMemberIDs(_ context.Context, schoolID, classID string) ([]string, error) {
	return f.byClass[schoolID][classID], nil
}

func (f *fakeDirectory) MembersOf(_ context.Context, schoolID string, userIDs []string) ([]string, error) {
	var out []string
	for _, id := range userIDs {
		if f.members[schoolID][id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		active: map[string][]string{
			"S1": {"u1", "u2", "t1", "p1"},
			"S2": {"u3"},
		},
		byRole: map[string]map[string][]string{
			"S1": {"teacher": {"t1"}, "student": {"u1", "u2"}, "parent": {"p1"}},
			"S2": {"teacher": {"u3"}},
		},
		byClass: map[string]map[string][]string{
			"S1": {"C1": {"u1", "t1", "p1"}, "C2": {"u2"}},
			"S2": {"C1": {"u3"}},
		},
		members: map[string]map[string]bool{
			"S1": {"u1": true, "u2": true, "t1": true, "p1": true},
			"S2": {"u3": true},
		},
	}
}

// ==========================
// Recipient resolution
// ==========================

func TestRecipientsAllMode(t *testing.T) {
	r := NewResolver(newFakeDirectory())
	event := &Event{SchoolID: "S1", AudienceMode: AudienceAll}

	got, err := r.Recipients(context.Background(), event)

	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "t1", "p1"}, got)
}

func TestRecipientsRoleMode(t *testing.T) {
	r := NewResolver(newFakeDirectory())
	event := &Event{SchoolID: "S1", AudienceMode: AudienceRole, TargetRoles: []string{"teacher"}}

	got, err := r.Recipients(context.Background(), event)

	assert.NoError(t, err)
	assert.Equal(t, []string{"t1"}, got)
}

func TestRecipientsRoleWildcardMatchesEveryone(t *testing.T) {
	r := NewResolver(newFakeDirectory())
	event := &Event{SchoolID: "S1", AudienceMode: AudienceRole, TargetRoles: []string{"all"}}

	got, err := r.Recipients(context.Background(), event)

	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "t1", "p1"}, got)
}

func TestRecipientsClassModeIncludesParentsAndTeacher(t *testing.T) {
	r := NewResolver(newFakeDirectory())
	event := &Event{SchoolID: "S1", AudienceMode: AudienceClass, ClassID: "C1"}

	got, err := r.Recipients(context.Background(), event)

	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "t1", "p1"}, got)
}

func TestRecipientsExplicitUnionAndDedupe(t *testing.T) {
	r := NewResolver(newFakeDirectory())
	// u1 is already in C1; listing them explicitly must not duplicate
	event := &Event{
		SchoolID:     "S1",
		AudienceMode: AudienceClass,
		ClassID:      "C1",
		Recipients:   []string{"u1", "u2"},
	}

	got, err := r.Recipients(context.Background(), event)

	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "t1", "p1"}, got)
}

func TestRecipientsExplicitCrossTenantDropped(t *testing.T) {
	r := NewResolver(newFakeDirectory())
	// u3 belongs to S2 and must never be resolved for an S1 event
	event := &Event{SchoolID: "S1", AudienceMode: AudienceExplicit, Recipients: []string{"u1", "u3"}}

	got, err := r.Recipients(context.Background(), event)

	assert.NoError(t, err)
	assert.Equal(t, []string{"u1"}, got)
}

// ==========================
// Eligibility predicate
// ==========================

func TestVisibleToTenantIsolation(t *testing.T) {
	event := &Event{SchoolID: "S1", AudienceMode: AudienceAll}

	assert.True(t, event.VisibleTo(Viewer{UserID: "u1", SchoolID: "S1", Role: "student"}))
	assert.False(t, event.VisibleTo(Viewer{UserID: "u3", SchoolID: "S2", Role: "student"}))
}

func TestVisibleToExplicitOverride(t *testing.T) {
	// class-scoped event; u2 is outside the class but explicitly listed
	event := &Event{
		SchoolID:     "S1",
		AudienceMode: AudienceClass,
		ClassID:      "C1",
		Recipients:   []string{"u2"},
	}

	assert.True(t, event.VisibleTo(Viewer{UserID: "u2", SchoolID: "S1", Role: "student", ClassID: "C2"}))
}

func TestVisibleToClassContainment(t *testing.T) {
	event := &Event{
		SchoolID:     "S1",
		AudienceMode: AudienceClass,
		ClassID:      "C1",
		TargetRoles:  []string{"teacher"},
	}

	assert.True(t, event.VisibleTo(Viewer{UserID: "u1", SchoolID: "S1", Role: "student", ClassID: "C1"}))
	// sharing a target role does not open a class-scoped event
	assert.False(t, event.VisibleTo(Viewer{UserID: "t2", SchoolID: "S1", Role: "teacher", ClassID: "C2"}))
}

func TestVisibleToNoClassUserExcluded(t *testing.T) {
	event := &Event{SchoolID: "S1", AudienceMode: AudienceClass, ClassID: "C1"}

	// graduated user without a class never sees class-only events
	assert.False(t, event.VisibleTo(Viewer{UserID: "u9", SchoolID: "S1", Role: "student", ClassID: ""}))
}

func TestVisibleToRoleWildcard(t *testing.T) {
	event := &Event{SchoolID: "S1", AudienceMode: AudienceRole, TargetRoles: []string{"all"}}

	assert.True(t, event.VisibleTo(Viewer{UserID: "u1", SchoolID: "S1", Role: "student"}))
	assert.True(t, event.VisibleTo(Viewer{UserID: "p1", SchoolID: "S1", Role: "parent"}))
}

// ==========================
// Scenario coverage
// ==========================

func TestClassScenario(t *testing.T) {
	event := &Event{SchoolID: "S1", AudienceMode: AudienceClass, ClassID: "C1", Title: "Week 3 initialized"}

	assert.True(t, event.VisibleTo(Viewer{UserID: "u1", SchoolID: "S1", Role: "student", ClassID: "C1"}))
	assert.False(t, event.VisibleTo(Viewer{UserID: "u2", SchoolID: "S1", Role: "student", ClassID: "C2"}))
	assert.False(t, event.VisibleTo(Viewer{UserID: "u3", SchoolID: "S2", Role: "student", ClassID: "C1"}))
}

func TestRoleScenario(t *testing.T) {
	event := &Event{SchoolID: "S1", AudienceMode: AudienceRole, TargetRoles: []string{"teacher"}}

	assert.True(t, event.VisibleTo(Viewer{UserID: "t1", SchoolID: "S1", Role: "teacher"}))
	assert.False(t, event.VisibleTo(Viewer{UserID: "u1", SchoolID: "S1", Role: "student"}))
	assert.False(t, event.VisibleTo(Viewer{UserID: "t9", SchoolID: "S2", Role: "teacher"}))
}

// ==========================
// Viewer filter shape
// ==========================

func TestViewerFilterPinsSchool(t *testing.T) {
	filter := ViewerFilter(Viewer{UserID: "u1", SchoolID: "S1", Role: "student", ClassID: "C1"})

	assert.Equal(t, "S1", filter["school_id"])
	arms := filter["$or"].([]bson.M)
	assert.Len(t, arms, 4)
}

func TestViewerFilterOmitsClassArmWithoutClass(t *testing.T) {
	filter := ViewerFilter(Viewer{UserID: "u1", SchoolID: "S1", Role: "student"})

	arms := filter["$or"].([]bson.M)
	assert.Len(t, arms, 3)
	for _, arm := range arms {
		assert.NotEqual(t, AudienceClass, arm["audience_mode"])
	}
}

func TestViewerFilterRoleArmIncludesWildcard(t *testing.T) {
	filter := ViewerFilter(Viewer{UserID: "u1", SchoolID: "S1", Role: "student"})

	arms := filter["$or"].([]bson.M)
	var roleArm bson.M
	for _, arm := range arms {
		if arm["audience_mode"] == AudienceRole {
			roleArm = arm
		}
	}
	assert.NotNil(t, roleArm)
	in := roleArm["target_roles"].(bson.M)["$in"].([]string)
	assert.ElementsMatch(t, []string{"student", "all"}, in)
}
