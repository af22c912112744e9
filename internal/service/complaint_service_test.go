package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/pkg/util"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []events.Event
	for _, event := range r.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

type complaintFixture struct {
	service     *ComplaintService
	complaints  *fakeComplaintRepo
	staff       *fakeStaffRepo
	categories  *fakeCategoryRepo
	stateLog    *fakeStateChangeRepo
	assignments *fakeAssignmentRepo
	comments    *fakeCommentRepo
	dispatcher  events.Dispatcher
	uow         *fakeUnitOfWork
	recorder    *eventRecorder
}

func newComplaintFixture(t *testing.T) *complaintFixture {
	t.Helper()

	complaints := newFakeComplaintRepo()
	staff := newFakeStaffRepo()
	categories := newFakeCategoryRepo()
	stateLog := &fakeStateChangeRepo{}
	assignments := &fakeAssignmentRepo{}
	comments := &fakeCommentRepo{}

	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	recorder := &eventRecorder{}
	for _, eventType := range []events.EventType{
		events.EventComplaintCreated,
		events.EventComplaintStateChanged,
		events.EventComplaintPriorityChanged,
		events.EventComplaintAssigned,
		events.EventComplaintCommentAdded,
	} {
		dispatcher.Subscribe(eventType, recorder.record)
	}

	uow := &fakeUnitOfWork{repos: repository.TxRepos{
		Complaints:  complaints,
		StateLog:    stateLog,
		Assignments: assignments,
	}}

	f := &complaintFixture{
		complaints:  complaints,
		staff:       staff,
		categories:  categories,
		stateLog:    stateLog,
		assignments: assignments,
		comments:    comments,
		dispatcher:  dispatcher,
		uow:         uow,
		recorder:    recorder,
	}
	f.service = NewComplaintService(f.dependencies())

	categories.add(domain.Category{ID: "cat-potholes", Name: "Pothole", DefaultDepartmentID: strPtr("dept-roads")})
	staff.add(domain.StaffMember{ID: "staff-handler", Name: "Handler", Role: domain.StaffRoleHandler, DepartmentID: strPtr("dept-roads"), Active: true})
	staff.add(domain.StaffMember{ID: "staff-admin", Name: "Admin", Role: domain.StaffRoleAdmin, Active: true})

	return f
}

func (f *complaintFixture) dependencies() ComplaintDependencies {
	return ComplaintDependencies{
		ComplaintRepo:  f.complaints,
		CommentRepo:    f.comments,
		StateLogRepo:   f.stateLog,
		AssignmentRepo: f.assignments,
		CategoryRepo:   f.categories,
		DepartmentRepo: fakeDepartmentRepo{},
		StaffRepo:      f.staff,
		UnitOfWork:     f.uow,
		Catalog:        seededCatalog(),
		Dispatcher:     f.dispatcher,
	}
}

// wireAutoAssign rebuilds the service with automatic routing enabled, the way
// the application wires it.
func (f *complaintFixture) wireAutoAssign() {
	deps := f.dependencies()
	deps.AutoAssigner = NewAssignmentService(AssignmentDependencies{
		ComplaintRepo:  f.complaints,
		StaffRepo:      f.staff,
		StateLogRepo:   f.stateLog,
		AssignmentRepo: f.assignments,
		UnitOfWork:     f.uow,
		Catalog:        seededCatalog(),
		Dispatcher:     f.dispatcher,
		Logger:         zap.NewNop(),
	})
	f.service = NewComplaintService(deps)
}

func (f *complaintFixture) register(t *testing.T, priority string) *domain.Complaint {
	t.Helper()
	complaint, err := f.service.CreateComplaint(context.Background(), "citizen-1", ComplaintCreateInput{
		CategoryID:   "cat-potholes",
		PriorityCode: priority,
		Title:        "Pothole on Main Street",
		Description:  "Large pothole near the intersection",
	})
	require.NoError(t, err)
	return complaint
}

func TestCreateComplaint(t *testing.T) {
	f := newComplaintFixture(t)
	before := time.Now().UTC()

	complaint := f.register(t, "HIGH")

	assert.True(t, strings.HasPrefix(complaint.Code, "DEN-"), "code %q", complaint.Code)
	assert.Len(t, complaint.Code, len("DEN-")+8)
	assert.Equal(t, domain.StateRegistered, complaint.StateCode)
	assert.Equal(t, "dept-roads", *complaint.DepartmentID)
	assert.Nil(t, complaint.AssigneeID)
	assert.Nil(t, complaint.ClosedAt)

	require.NotNil(t, complaint.SlaDeadline)
	expected := complaint.RegisteredAt.Add(24 * time.Hour)
	assert.True(t, complaint.SlaDeadline.Equal(expected), "deadline %v, want %v", complaint.SlaDeadline, expected)
	assert.False(t, complaint.RegisteredAt.Before(before))

	created := f.recorder.ofType(events.EventComplaintCreated)
	require.Len(t, created, 1)
	payload := created[0].Payload.(events.ComplaintCreatedPayload)
	assert.Equal(t, complaint.Code, payload.Code)

	// The ledger opens with a registration entry.
	require.Len(t, f.stateLog.entries, 1)
	entry := f.stateLog.entries[0]
	assert.Nil(t, entry.PreviousState)
	assert.Equal(t, domain.StateRegistered, entry.NewState)
	assert.Equal(t, "citizen-1", entry.ChangedByID)
}

func TestCreateComplaintDefaultsToMediumPriority(t *testing.T) {
	f := newComplaintFixture(t)

	complaint := f.register(t, "")

	assert.Equal(t, "MEDIUM", complaint.PriorityCode)
	expected := complaint.RegisteredAt.Add(72 * time.Hour)
	assert.True(t, complaint.SlaDeadline.Equal(expected))
}

func TestCreateComplaintUnknownCategory(t *testing.T) {
	f := newComplaintFixture(t)

	_, err := f.service.CreateComplaint(context.Background(), "citizen-1", ComplaintCreateInput{
		CategoryID:  "cat-unknown",
		Title:       "title",
		Description: "description",
	})
	assert.True(t, util.IsCode(err, "NOT_FOUND"))
}

func TestTransitionIllegal(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	_, err := f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateResolved, "done")
	assert.True(t, util.IsCode(err, "ILLEGAL_TRANSITION"))

	stored, getErr := f.complaints.GetByID(context.Background(), complaint.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StateRegistered, stored.StateCode)
	assert.Len(t, f.stateLog.entries, 1, "only the registration entry")
}

func TestTransitionRequiresReason(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	_, err := f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateRejected, "  ")
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateRejected, "duplicate report")
	assert.NoError(t, err)
}

func TestTransitionRequiresAssignee(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	_, err := f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateInProgress, "")
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestTransitionAdminOnly(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	complaint.AssigneeID = strPtr("staff-handler")
	require.NoError(t, f.complaints.Update(context.Background(), complaint))
	_, err := f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateInProgress, "")
	require.NoError(t, err)
	_, err = f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateResolved, "fixed")
	require.NoError(t, err)

	// Reopening a resolved complaint is restricted to administrators.
	_, err = f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateInProgress, "not fixed")
	assert.True(t, util.IsCode(err, "FORBIDDEN"))

	reopened, err := f.service.Transition(context.Background(), "staff-admin", complaint.ID, domain.StateInProgress, "not actually fixed")
	require.NoError(t, err)
	assert.Equal(t, domain.StateInProgress, reopened.StateCode)
	assert.Nil(t, reopened.ClosedAt)
}

func TestTransitionToFinalSetsClosedAt(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	updated, err := f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateRejected, "duplicate")
	require.NoError(t, err)
	require.NotNil(t, updated.ClosedAt)
	assert.Equal(t, domain.StateRejected, updated.StateCode)

	changed := f.recorder.ofType(events.EventComplaintStateChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(events.ComplaintStateChangedPayload)
	assert.True(t, payload.Closed)
	assert.Equal(t, domain.StateRegistered, payload.PreviousState)
}

func TestTransitionLedgerReplay(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	complaint.AssigneeID = strPtr("staff-handler")
	require.NoError(t, f.complaints.Update(context.Background(), complaint))

	steps := []struct{ to, reason string }{
		{domain.StateInReview, ""},
		{domain.StateInProgress, ""},
		{domain.StatePending, "waiting on contractor"},
		{domain.StateInProgress, ""},
		{domain.StateResolved, "repaired"},
	}
	for _, step := range steps {
		_, err := f.service.Transition(context.Background(), "staff-handler", complaint.ID, step.to, step.reason)
		require.NoError(t, err, "transition to %s", step.to)
	}

	entries, err := f.service.History(context.Background(), complaint.ID)
	require.NoError(t, err)
	require.Len(t, entries, len(steps)+1)

	// The ledger is self-contained: the first entry records registration and
	// replaying the rest reproduces the stored state.
	require.Nil(t, entries[0].PreviousState)
	state := entries[0].NewState
	for _, entry := range entries[1:] {
		require.NotNil(t, entry.PreviousState)
		assert.Equal(t, state, *entry.PreviousState)
		state = entry.NewState
	}
	stored, err := f.complaints.GetByID(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.StateCode, state)
}

func TestTransitionAtomicity(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	broken := NewComplaintService(ComplaintDependencies{
		ComplaintRepo:  f.complaints,
		CommentRepo:    f.comments,
		StateLogRepo:   f.stateLog,
		AssignmentRepo: f.assignments,
		CategoryRepo:   f.categories,
		DepartmentRepo: fakeDepartmentRepo{},
		StaffRepo:      f.staff,
		UnitOfWork:     &failingUnitOfWork{err: errors.New("connection lost")},
		Catalog:        seededCatalog(),
		Dispatcher:     events.NewInMemoryDispatcher(zap.NewNop()),
	})

	_, err := broken.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateInReview, "")
	require.Error(t, err)

	stored, getErr := f.complaints.GetByID(context.Background(), complaint.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StateRegistered, stored.StateCode)
}

func TestChangePriorityRecomputesDeadline(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "LOW")

	now := time.Now().UTC()
	complaint.BreachNotifiedAt = &now
	complaint.ApproachNotifiedAt = &now
	require.NoError(t, f.complaints.Update(context.Background(), complaint))

	updated, err := f.service.ChangePriority(context.Background(), "staff-handler", complaint.ID, "CRITICAL")
	require.NoError(t, err)

	assert.Equal(t, "CRITICAL", updated.PriorityCode)
	expected := complaint.RegisteredAt.Add(4 * time.Hour)
	assert.True(t, updated.SlaDeadline.Equal(expected), "deadline anchored to registration, got %v want %v", updated.SlaDeadline, expected)
	assert.Nil(t, updated.BreachNotifiedAt)
	assert.Nil(t, updated.ApproachNotifiedAt)

	changed := f.recorder.ofType(events.EventComplaintPriorityChanged)
	require.Len(t, changed, 1)
}

func TestChangePrioritySameCodeIsNoop(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	_, err := f.service.ChangePriority(context.Background(), "staff-handler", complaint.ID, "HIGH")
	require.NoError(t, err)
	assert.Empty(t, f.recorder.ofType(events.EventComplaintPriorityChanged))
}

func TestChangePriorityOnClosedComplaint(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	_, err := f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateRejected, "duplicate")
	require.NoError(t, err)

	_, err = f.service.ChangePriority(context.Background(), "staff-handler", complaint.ID, "CRITICAL")
	assert.True(t, util.IsCode(err, "CONFLICT"))
}

func TestAddCommentRules(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	_, err := f.service.AddComment(context.Background(), "citizen-1", domain.SubjectTypeUser, complaint.ID, "any update?", true)
	assert.True(t, util.IsCode(err, "FORBIDDEN"), "citizens cannot post internal notes")

	_, err = f.service.AddComment(context.Background(), "citizen-2", domain.SubjectTypeUser, complaint.ID, "mine too", false)
	assert.True(t, util.IsCode(err, "FORBIDDEN"), "citizens cannot comment on others' complaints")

	comment, err := f.service.AddComment(context.Background(), "staff-handler", domain.SubjectTypeStaff, complaint.ID, "crew dispatched", true)
	require.NoError(t, err)
	assert.True(t, comment.Internal)

	visible, err := f.service.Comments(context.Background(), complaint.ID, false)
	require.NoError(t, err)
	assert.Empty(t, visible, "internal notes hidden from citizens")

	all, err := f.service.Comments(context.Background(), complaint.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTransitionFinalToFinalKeepsClosedAt(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	closeTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return closeTime }
	rejected, err := f.service.Transition(context.Background(), "staff-handler", complaint.ID, domain.StateRejected, "duplicate")
	require.NoError(t, err)
	require.NotNil(t, rejected.ClosedAt)
	require.True(t, rejected.ClosedAt.Equal(closeTime))

	// Archiving two days later must not move the closure time.
	f.service.now = func() time.Time { return closeTime.Add(48 * time.Hour) }
	archived, err := f.service.Transition(context.Background(), "staff-admin", complaint.ID, domain.StateArchived, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StateArchived, archived.StateCode)
	require.NotNil(t, archived.ClosedAt)
	assert.True(t, archived.ClosedAt.Equal(closeTime), "got %v, want %v", archived.ClosedAt, closeTime)
}

func TestCreateComplaintAutoAssigns(t *testing.T) {
	f := newComplaintFixture(t)
	f.wireAutoAssign()

	complaint := f.register(t, "HIGH")

	require.NotNil(t, complaint.AssigneeID)
	assert.Equal(t, "staff-handler", *complaint.AssigneeID)
	assert.Equal(t, domain.StateInProgress, complaint.StateCode)
	require.Len(t, f.assignments.entries, 1)
	assert.Nil(t, f.assignments.entries[0].AssignedByID, "system assignment")

	assigned := f.recorder.ofType(events.EventComplaintAssigned)
	require.Len(t, assigned, 1)
	assert.True(t, assigned[0].Payload.(events.ComplaintAssignedPayload).Automatic)
}

func TestCreateComplaintWithoutEligibleAssignee(t *testing.T) {
	f := newComplaintFixture(t)
	f.staff = newFakeStaffRepo() // no handlers anywhere
	f.wireAutoAssign()

	complaint, err := f.service.CreateComplaint(context.Background(), "citizen-1", ComplaintCreateInput{
		CategoryID:  "cat-potholes",
		Title:       "Pothole on Main Street",
		Description: "Large pothole near the intersection",
	})
	require.NoError(t, err, "registration succeeds even when nobody can take it")

	assert.Nil(t, complaint.AssigneeID)
	assert.Equal(t, domain.StateRegistered, complaint.StateCode)
	assert.Empty(t, f.assignments.entries)
	assert.Empty(t, f.recorder.ofType(events.EventComplaintAssigned))
}

func TestArchiveAdminOnly(t *testing.T) {
	f := newComplaintFixture(t)
	complaint := f.register(t, "HIGH")

	err := f.service.Archive(context.Background(), "staff-handler", complaint.ID)
	assert.True(t, util.IsCode(err, "FORBIDDEN"))

	require.NoError(t, f.service.Archive(context.Background(), "staff-admin", complaint.ID))

	_, err = f.service.Get(context.Background(), complaint.ID)
	assert.True(t, util.IsCode(err, "NOT_FOUND"))
}
