package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
)

type slaFixture struct {
	service    *SlaService
	complaints *fakeComplaintRepo
	recorder   *eventRecorder
	clock      time.Time
}

func newSlaFixture(t *testing.T) *slaFixture {
	t.Helper()

	complaints := newFakeComplaintRepo()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	recorder := &eventRecorder{}
	dispatcher.Subscribe(events.EventComplaintSlaBreached, recorder.record)
	dispatcher.Subscribe(events.EventComplaintSlaApproaching, recorder.record)

	f := &slaFixture{
		complaints: complaints,
		recorder:   recorder,
		clock:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewSlaService(complaints, dispatcher, zap.NewNop(), config.SlaConfig{ApproachWindowHours: 24})
	f.service.now = func() time.Time { return f.clock }
	return f
}

func (f *slaFixture) seed(t *testing.T, code string, deadline time.Time, closed bool) *domain.Complaint {
	t.Helper()
	complaint := &domain.Complaint{
		Code:         code,
		CitizenID:    "citizen-1",
		DepartmentID: strPtr("dept-roads"),
		AssigneeID:   strPtr("staff-h1"),
		CategoryID:   "cat-potholes",
		PriorityCode: "HIGH",
		StateCode:    domain.StateInProgress,
		Title:        "t",
		Description:  "d",
		RegisteredAt: deadline.Add(-24 * time.Hour),
		SlaDeadline:  &deadline,
	}
	if closed {
		closedAt := f.clock.Add(-time.Hour)
		complaint.ClosedAt = &closedAt
		complaint.StateCode = domain.StateResolved
	}
	require.NoError(t, f.complaints.Create(context.Background(), complaint))
	return complaint
}

func TestSweepBreached(t *testing.T) {
	f := newSlaFixture(t)
	breached := f.seed(t, "DEN-BREACH01", f.clock.Add(-2*time.Hour), false)
	f.seed(t, "DEN-OK000001", f.clock.Add(48*time.Hour), false)
	f.seed(t, "DEN-CLOSED01", f.clock.Add(-2*time.Hour), true)

	flagged, err := f.service.SweepBreached(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	captured := f.recorder.ofType(events.EventComplaintSlaBreached)
	require.Len(t, captured, 1)
	assert.Equal(t, breached.ID, captured[0].ComplaintID)

	stored, err := f.complaints.GetByID(context.Background(), breached.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.BreachNotifiedAt)
	assert.True(t, stored.BreachNotifiedAt.Equal(f.clock))
}

func TestSweepBreachedFlagsOncePerDeadline(t *testing.T) {
	f := newSlaFixture(t)
	f.seed(t, "DEN-BREACH01", f.clock.Add(-2*time.Hour), false)

	flagged, err := f.service.SweepBreached(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	// The watermark suppresses a second flag on the next sweep.
	f.clock = f.clock.Add(10 * time.Minute)
	flagged, err = f.service.SweepBreached(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
	assert.Len(t, f.recorder.ofType(events.EventComplaintSlaBreached), 1)
}

func TestSweepApproaching(t *testing.T) {
	f := newSlaFixture(t)
	near := f.seed(t, "DEN-NEAR0001", f.clock.Add(6*time.Hour), false)
	f.seed(t, "DEN-FAR00001", f.clock.Add(72*time.Hour), false)
	f.seed(t, "DEN-PAST0001", f.clock.Add(-time.Hour), false)

	flagged, err := f.service.SweepApproaching(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	warnings := f.recorder.ofType(events.EventComplaintSlaApproaching)
	require.Len(t, warnings, 1)
	assert.Equal(t, near.ID, warnings[0].ComplaintID)

	stored, err := f.complaints.GetByID(context.Background(), near.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ApproachNotifiedAt)

	// Second sweep finds nothing new.
	flagged, err = f.service.SweepApproaching(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
}

func TestSweepHonorsLimit(t *testing.T) {
	f := newSlaFixture(t)
	for i := 0; i < 5; i++ {
		f.seed(t, "DEN-BRCH000"+string(rune('1'+i)), f.clock.Add(-time.Hour), false)
	}

	flagged, err := f.service.SweepBreached(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, flagged)

	flagged, err = f.service.SweepBreached(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, flagged)
}

func TestSweepPayloadCarriesRoutingData(t *testing.T) {
	f := newSlaFixture(t)
	breached := f.seed(t, "DEN-BREACH01", f.clock.Add(-2*time.Hour), false)

	_, err := f.service.SweepBreached(context.Background(), 200)
	require.NoError(t, err)

	captured := f.recorder.ofType(events.EventComplaintSlaBreached)
	require.Len(t, captured, 1)
	payload := captured[0].Payload.(events.ComplaintSlaPayload)
	assert.Equal(t, breached.Code, payload.Code)
	assert.Equal(t, "staff-h1", *payload.AssigneeID)
	assert.Equal(t, "dept-roads", *payload.DepartmentID)
}
