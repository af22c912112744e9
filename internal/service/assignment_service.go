package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/catalog"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/pkg/util"
)

// AssignmentService routes complaints to staff members, manually or via the
// least-loaded automatic strategy.
type AssignmentService struct {
	complaints  repository.ComplaintRepository
	staff       repository.StaffRepository
	stateLog    repository.StateChangeRepository
	assignments repository.AssignmentRepository
	uow         repository.UnitOfWork
	catalog     *catalog.Cache
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// AssignmentDependencies bundles collaborators for the assignment service.
type AssignmentDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	StaffRepo      repository.StaffRepository
	StateLogRepo   repository.StateChangeRepository
	AssignmentRepo repository.AssignmentRepository
	UnitOfWork     repository.UnitOfWork
	Catalog        *catalog.Cache
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		complaints:  deps.ComplaintRepo,
		staff:       deps.StaffRepo,
		stateLog:    deps.StateLogRepo,
		assignments: deps.AssignmentRepo,
		uow:         deps.UnitOfWork,
		catalog:     deps.Catalog,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         time.Now,
	}
}

// Assign hands a complaint to a specific staff member. The assignee must be
// active and able to own complaints. Assigning outside the complaint's
// department is rejected unless the acting staff member is an administrator,
// in which case the complaint moves to the assignee's department.
func (s *AssignmentService) Assign(ctx context.Context, actorStaffID, complaintID, assigneeID, reason string) (*domain.Complaint, error) {
	actor, err := s.staff.GetByID(ctx, actorStaffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("staff member", map[string]any{"staff_id": actorStaffID})
		}
		return nil, err
	}

	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, err
	}
	if !complaint.Open() {
		return nil, util.NewConflict("complaint already closed", map[string]any{"complaint_id": complaintID})
	}

	assignee, err := s.staff.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("staff member", map[string]any{"staff_id": assigneeID})
		}
		return nil, err
	}
	if !assignee.CanHandle() {
		return nil, util.NewValidationError("assignee cannot own complaints", map[string]any{"staff_id": assigneeID})
	}

	// applyAssignment moves the complaint into the assignee's department
	// after snapshotting the previous one for the ledger.
	if complaint.DepartmentID != nil && assignee.DepartmentID != nil && *complaint.DepartmentID != *assignee.DepartmentID && !actor.IsAdmin() {
		return nil, util.NewCrossDepartment(map[string]any{
			"complaint_department": *complaint.DepartmentID,
			"assignee_department":  *assignee.DepartmentID,
		})
	}

	return s.applyAssignment(ctx, complaint, assignee, &actor.ID, strings.TrimSpace(reason), false)
}

// AutoAssign picks the active handler with the fewest open complaints in the
// complaint's department and assigns it, moving a freshly registered
// complaint into progress when the transition is configured. An already
// assigned complaint is left untouched. When no staff member is eligible the
// complaint stays queued and the caller receives a NO_ELIGIBLE_ASSIGNEE
// error.
func (s *AssignmentService) AutoAssign(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, err
	}
	if !complaint.Open() {
		return nil, util.NewConflict("complaint already closed", map[string]any{"complaint_id": complaintID})
	}
	if complaint.AssigneeID != nil {
		return complaint, nil
	}
	if complaint.DepartmentID == nil {
		return nil, util.NewNoEligibleAssignee("")
	}

	candidate, err := s.leastLoaded(ctx, *complaint.DepartmentID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		s.logger.Info("no eligible assignee, complaint stays queued",
			zap.String("complaint_id", complaint.ID),
			zap.String("department_id", *complaint.DepartmentID))
		return nil, util.NewNoEligibleAssignee(*complaint.DepartmentID)
	}

	return s.applyAssignment(ctx, complaint, candidate, nil, "automatic assignment", true)
}

// leastLoaded returns the active handler with the fewest open complaints.
// Ties break on the lowest staff ID, which List already orders by.
func (s *AssignmentService) leastLoaded(ctx context.Context, departmentID string) (*domain.StaffMember, error) {
	active := true
	role := domain.StaffRoleHandler
	handlers, err := s.staff.List(ctx, repository.StaffFilter{
		Role:         &role,
		DepartmentID: &departmentID,
		Active:       &active,
		Limit:        500,
	})
	if err != nil {
		return nil, err
	}

	var best *domain.StaffMember
	bestLoad := 0
	for i := range handlers {
		handler := &handlers[i]
		load, err := s.complaints.CountOpenByAssignee(ctx, handler.ID)
		if err != nil {
			return nil, err
		}
		if best == nil || load < bestLoad {
			best = handler
			bestLoad = load
		}
	}
	return best, nil
}

// applyAssignment records the assignment ledger entry, updates the
// complaint, and advances a registered complaint into progress when the
// transition table allows it. All writes share one transaction.
func (s *AssignmentService) applyAssignment(ctx context.Context, complaint *domain.Complaint, assignee *domain.StaffMember, actorStaffID *string, reason string, automatic bool) (*domain.Complaint, error) {
	previousAssignee := complaint.AssigneeID
	previousDepartment := complaint.DepartmentID
	reassignment := previousAssignee != nil

	complaint.AssigneeID = &assignee.ID
	if assignee.DepartmentID != nil {
		complaint.DepartmentID = assignee.DepartmentID
	}

	var stateEntry *domain.StateChange
	previousState := complaint.StateCode
	if complaint.StateCode == domain.StateRegistered {
		rule, err := s.catalog.Rule(ctx, domain.StateRegistered, domain.StateInProgress)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			changedAt := s.now().UTC()
			complaint.StateCode = domain.StateInProgress
			stateEntry = &domain.StateChange{
				ComplaintID:         complaint.ID,
				PreviousState:       &previousState,
				NewState:            domain.StateInProgress,
				ChangedByID:         assignee.ID,
				Reason:              reason,
				TimeInPreviousState: changedAt.Sub(complaint.RegisteredAt),
			}
		}
	}

	entry := &domain.Assignment{
		ComplaintID:          complaint.ID,
		PreviousAssigneeID:   previousAssignee,
		NewAssigneeID:        assignee.ID,
		PreviousDepartmentID: previousDepartment,
		NewDepartmentID:      complaint.DepartmentID,
		AssignedByID:         actorStaffID,
		Reason:               reason,
	}

	err := s.uow.Execute(ctx, func(repos repository.TxRepos) error {
		if err := repos.Complaints.Update(ctx, complaint); err != nil {
			return err
		}
		if err := repos.Assignments.Create(ctx, entry); err != nil {
			return err
		}
		if stateEntry != nil {
			return repos.StateLog.Create(ctx, stateEntry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	actor := events.Actor{Type: domain.SubjectTypeStaff, StaffID: actorStaffID}
	if actorStaffID == nil {
		actor = events.Actor{Type: domain.SubjectTypeStaff}
	}
	s.publish(ctx, events.EventComplaintAssigned, complaint.ID, actor, events.ComplaintAssignedPayload{
		Code:               complaint.Code,
		NewAssigneeID:      assignee.ID,
		PreviousAssigneeID: previousAssignee,
		DepartmentID:       complaint.DepartmentID,
		Reassignment:       reassignment,
		Automatic:          automatic,
	})
	if stateEntry != nil {
		s.publish(ctx, events.EventComplaintStateChanged, complaint.ID, actor, events.ComplaintStateChangedPayload{
			Code:          complaint.Code,
			CitizenID:     complaint.CitizenID,
			PreviousState: previousState,
			NewState:      complaint.StateCode,
			Reason:        reason,
			Closed:        false,
			AssigneeID:    complaint.AssigneeID,
		})
	}

	return complaint, nil
}

func (s *AssignmentService) publish(ctx context.Context, eventType events.EventType, complaintID string, actor events.Actor, payload any) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		Actor:       actor,
		Timestamp:   s.now().UTC(),
		Payload:     payload,
	})
}
