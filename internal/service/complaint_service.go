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
	"github.com/spec-kit/complaint-service/internal/sla"
	"github.com/spec-kit/complaint-service/pkg/util"
)

// AutoAssigner attempts automatic routing of a complaint to a staff member.
type AutoAssigner interface {
	AutoAssign(ctx context.Context, complaintID string) (*domain.Complaint, error)
}

// ComplaintService coordinates the complaint lifecycle: registration, state
// transitions, priority changes and the comment thread.
type ComplaintService struct {
	complaints   repository.ComplaintRepository
	comments     repository.CommentRepository
	stateLog     repository.StateChangeRepository
	assignments  repository.AssignmentRepository
	categories   repository.CategoryRepository
	departments  repository.DepartmentRepository
	staff        repository.StaffRepository
	uow          repository.UnitOfWork
	catalog      *catalog.Cache
	dispatcher   events.Dispatcher
	autoAssigner AutoAssigner
	logger       *zap.Logger
	now          func() time.Time
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	CommentRepo    repository.CommentRepository
	StateLogRepo   repository.StateChangeRepository
	AssignmentRepo repository.AssignmentRepository
	CategoryRepo   repository.CategoryRepository
	DepartmentRepo repository.DepartmentRepository
	StaffRepo      repository.StaffRepository
	UnitOfWork     repository.UnitOfWork
	Catalog        *catalog.Cache
	Dispatcher     events.Dispatcher
	AutoAssigner   AutoAssigner
	Logger         *zap.Logger
}

// ComplaintCreateInput describes a citizen registration payload.
type ComplaintCreateInput struct {
	CategoryID   string
	PriorityCode string
	Title        string
	Description  string
	Address      string
	DistrictID   *string
	Anonymous    bool
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		complaints:   deps.ComplaintRepo,
		comments:     deps.CommentRepo,
		stateLog:     deps.StateLogRepo,
		assignments:  deps.AssignmentRepo,
		categories:   deps.CategoryRepo,
		departments:  deps.DepartmentRepo,
		staff:        deps.StaffRepo,
		uow:          deps.UnitOfWork,
		catalog:      deps.Catalog,
		dispatcher:   deps.Dispatcher,
		autoAssigner: deps.AutoAssigner,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateComplaint registers a new complaint for a citizen. The complaint
// starts in the catalog's initial state, is routed to the category's default
// department, receives an SLA deadline derived from its priority, and opens
// its ledger with a registration entry. Registration ends with an automatic
// assignment attempt.
func (s *ComplaintService) CreateComplaint(ctx context.Context, citizenID string, input ComplaintCreateInput) (*domain.Complaint, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, util.NewValidationError("title is required", nil)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, util.NewValidationError("description is required", nil)
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, err
	}

	priorityCode := input.PriorityCode
	if priorityCode == "" {
		priorityCode = "MEDIUM"
	}
	priority, err := s.catalog.Priority(ctx, priorityCode)
	if err != nil {
		return nil, err
	}
	if priority == nil {
		return nil, util.NewValidationError("unknown priority", map[string]any{"priority_code": priorityCode})
	}

	initial, err := s.catalog.InitialState(ctx)
	if err != nil {
		return nil, err
	}
	if initial == nil {
		return nil, util.NewInternalError(errors.New("catalog has no initial state"))
	}

	registeredAt := s.now().UTC()
	deadline := sla.Deadline(registeredAt, priority.SlaHours)

	complaint := &domain.Complaint{
		Code:         generateComplaintCode(),
		CitizenID:    citizenID,
		DepartmentID: category.DefaultDepartmentID,
		CategoryID:   category.ID,
		DistrictID:   input.DistrictID,
		PriorityCode: priority.Code,
		StateCode:    initial.Code,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Address:      strings.TrimSpace(input.Address),
		Anonymous:    input.Anonymous,
		RegisteredAt: registeredAt,
		SlaDeadline:  &deadline,
	}

	err = s.uow.Execute(ctx, func(repos repository.TxRepos) error {
		if err := repos.Complaints.Create(ctx, complaint); err != nil {
			return err
		}
		return repos.StateLog.Create(ctx, &domain.StateChange{
			ComplaintID: complaint.ID,
			NewState:    complaint.StateCode,
			ChangedByID: citizenID,
			Reason:      "Complaint registered",
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventComplaintCreated, complaint.ID, events.Actor{Type: domain.SubjectTypeUser, UserID: &citizenID}, events.ComplaintCreatedPayload{
		Code:         complaint.Code,
		CitizenID:    complaint.CitizenID,
		DepartmentID: complaint.DepartmentID,
		PriorityCode: complaint.PriorityCode,
		StateCode:    complaint.StateCode,
		SlaDeadline:  complaint.SlaDeadline,
		Title:        complaint.Title,
	})

	return s.attemptAutoAssign(ctx, complaint), nil
}

// attemptAutoAssign routes a fresh complaint to a handler. A complaint with
// no eligible assignee stays queued; registration never fails because of it.
func (s *ComplaintService) attemptAutoAssign(ctx context.Context, complaint *domain.Complaint) *domain.Complaint {
	if s.autoAssigner == nil {
		return complaint
	}
	assigned, err := s.autoAssigner.AutoAssign(ctx, complaint.ID)
	if err != nil {
		if util.IsCode(err, "NO_ELIGIBLE_ASSIGNEE") {
			s.logger.Info("complaint stays queued, no eligible assignee",
				zap.String("complaint_id", complaint.ID))
		} else {
			s.logger.Warn("automatic assignment failed",
				zap.String("complaint_id", complaint.ID), zap.Error(err))
		}
		return complaint
	}
	return assigned
}

// Transition moves a complaint to a new state. The configured transition
// rules are the single source of truth: a missing rule rejects the change,
// and the rule's flags drive reason, assignee and admin requirements. The
// state update and the ledger entry commit in one transaction.
func (s *ComplaintService) Transition(ctx context.Context, staffID, complaintID, toState, reason string) (*domain.Complaint, error) {
	actor, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("staff member", map[string]any{"staff_id": staffID})
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

	target, err := s.catalog.State(ctx, toState)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, util.NewValidationError("unknown state", map[string]any{"state_code": toState})
	}

	rule, err := s.catalog.Rule(ctx, complaint.StateCode, toState)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, util.NewIllegalTransition(complaint.StateCode, toState)
	}
	if rule.AdminOnly && !actor.IsAdmin() {
		return nil, util.NewForbidden("transition restricted to administrators")
	}
	if rule.RequiresReason && strings.TrimSpace(reason) == "" {
		return nil, util.NewValidationError("transition requires a reason", map[string]any{"to_state": toState})
	}
	if rule.RequiresAssignee && complaint.AssigneeID == nil {
		return nil, util.NewValidationError("transition requires an assignee", map[string]any{"to_state": toState})
	}

	previousState := complaint.StateCode
	changedAt := s.now().UTC()
	timeInPrevious, err := s.timeInState(ctx, complaint, changedAt)
	if err != nil {
		return nil, err
	}

	complaint.StateCode = target.Code
	if target.IsFinal {
		// First closure wins; a final-to-final move keeps the original time.
		if complaint.ClosedAt == nil {
			complaint.ClosedAt = &changedAt
		}
	} else {
		complaint.ClosedAt = nil
	}

	entry := &domain.StateChange{
		ComplaintID:         complaint.ID,
		PreviousState:       &previousState,
		NewState:            target.Code,
		ChangedByID:         actor.ID,
		Reason:              strings.TrimSpace(reason),
		TimeInPreviousState: timeInPrevious,
	}

	err = s.uow.Execute(ctx, func(repos repository.TxRepos) error {
		if err := repos.Complaints.Update(ctx, complaint); err != nil {
			return err
		}
		return repos.StateLog.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventComplaintStateChanged, complaint.ID, staffActor(actor), events.ComplaintStateChangedPayload{
		Code:          complaint.Code,
		CitizenID:     complaint.CitizenID,
		PreviousState: previousState,
		NewState:      complaint.StateCode,
		Reason:        entry.Reason,
		Closed:        target.IsFinal,
		AssigneeID:    complaint.AssigneeID,
	})

	return complaint, nil
}

// ChangePriority updates the complaint's priority and recomputes the SLA
// deadline from the original registration time. The breach and approach
// watermarks reset so the sweep re-evaluates against the new deadline.
func (s *ComplaintService) ChangePriority(ctx context.Context, staffID, complaintID, priorityCode string) (*domain.Complaint, error) {
	actor, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("staff member", map[string]any{"staff_id": staffID})
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

	priority, err := s.catalog.Priority(ctx, priorityCode)
	if err != nil {
		return nil, err
	}
	if priority == nil {
		return nil, util.NewValidationError("unknown priority", map[string]any{"priority_code": priorityCode})
	}
	if priority.Code == complaint.PriorityCode {
		return complaint, nil
	}

	previousPriority := complaint.PriorityCode
	deadline := sla.Deadline(complaint.RegisteredAt, priority.SlaHours)

	complaint.PriorityCode = priority.Code
	complaint.SlaDeadline = &deadline
	complaint.BreachNotifiedAt = nil
	complaint.ApproachNotifiedAt = nil

	if err := s.complaints.Update(ctx, complaint); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventComplaintPriorityChanged, complaint.ID, staffActor(actor), events.ComplaintPriorityChangedPayload{
		Code:             complaint.Code,
		PreviousPriority: previousPriority,
		NewPriority:      complaint.PriorityCode,
		NewDeadline:      complaint.SlaDeadline,
		AssigneeID:       complaint.AssigneeID,
	})

	return complaint, nil
}

// AddComment appends a message to the complaint thread. Citizens may only
// comment on their own complaints and never post internal notes.
func (s *ComplaintService) AddComment(ctx context.Context, authorID string, authorType domain.SubjectType, complaintID, body string, internal bool) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, util.NewValidationError("comment body is required", nil)
	}
	if internal && authorType != domain.SubjectTypeStaff {
		return nil, util.NewForbidden("internal comments are staff only")
	}

	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, err
	}
	if authorType == domain.SubjectTypeUser && complaint.CitizenID != authorID {
		return nil, util.NewForbidden("complaint belongs to another citizen")
	}

	comment := &domain.Comment{
		ComplaintID: complaint.ID,
		AuthorID:    authorID,
		AuthorType:  authorType,
		Body:        strings.TrimSpace(body),
		Internal:    internal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	actor := events.Actor{Type: authorType}
	if authorType == domain.SubjectTypeStaff {
		actor.StaffID = &authorID
	} else {
		actor.UserID = &authorID
	}
	s.publish(ctx, events.EventComplaintCommentAdded, complaint.ID, actor, events.ComplaintCommentAddedPayload{
		Code:       complaint.Code,
		CommentID:  comment.ID,
		AuthorID:   authorID,
		AuthorType: authorType,
		Internal:   internal,
		CitizenID:  complaint.CitizenID,
		AssigneeID: complaint.AssigneeID,
	})

	return comment, nil
}

// GetForCitizen returns a complaint owned by the citizen.
func (s *ComplaintService) GetForCitizen(ctx context.Context, citizenID, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, err
	}
	if complaint.CitizenID != citizenID {
		return nil, util.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
	}
	return complaint, nil
}

// Get returns a complaint without ownership scoping, for staff viewers.
func (s *ComplaintService) Get(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, err
	}
	return complaint, nil
}

// GetByCode resolves a complaint by its public tracking code.
func (s *ComplaintService) GetByCode(ctx context.Context, code string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("complaint", map[string]any{"code": code})
		}
		return nil, err
	}
	return complaint, nil
}

// ListForCitizen lists the citizen's own complaints.
func (s *ComplaintService) ListForCitizen(ctx context.Context, citizenID string, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	filter.CitizenID = &citizenID
	return s.complaints.ListWithFilter(ctx, filter)
}

// ListForStaff lists complaints using the full filter surface. Non-admin
// staff are scoped to their own department.
func (s *ComplaintService) ListForStaff(ctx context.Context, staffID string, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	actor, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("staff member", map[string]any{"staff_id": staffID})
		}
		return nil, err
	}
	if !actor.IsAdmin() && actor.DepartmentID != nil {
		filter.DepartmentID = actor.DepartmentID
	}
	return s.complaints.ListWithFilter(ctx, filter)
}

// History returns the state-change ledger for a complaint, oldest first.
func (s *ComplaintService) History(ctx context.Context, complaintID string) ([]domain.StateChange, error) {
	return s.stateLog.ListByComplaint(ctx, complaintID)
}

// AssignmentHistory returns the assignment ledger for a complaint.
func (s *ComplaintService) AssignmentHistory(ctx context.Context, complaintID string) ([]domain.Assignment, error) {
	return s.assignments.ListByComplaint(ctx, complaintID)
}

// Comments lists the complaint thread. Internal notes are filtered out for
// citizen viewers.
func (s *ComplaintService) Comments(ctx context.Context, complaintID string, includeInternal bool) ([]domain.Comment, error) {
	return s.comments.ListByComplaint(ctx, complaintID, includeInternal)
}

// Archive soft-deletes a complaint. Restricted to administrators.
func (s *ComplaintService) Archive(ctx context.Context, staffID, complaintID string) error {
	actor, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("staff member", map[string]any{"staff_id": staffID})
		}
		return err
	}
	if !actor.IsAdmin() {
		return util.NewForbidden("archiving restricted to administrators")
	}
	if err := s.complaints.SoftDelete(ctx, complaintID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return err
	}
	return nil
}

// timeInState computes how long the complaint sat in its current state, using
// the latest ledger entry or, for a first transition, the registration time.
func (s *ComplaintService) timeInState(ctx context.Context, complaint *domain.Complaint, at time.Time) (time.Duration, error) {
	latest, err := s.stateLog.LatestByComplaint(ctx, complaint.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return at.Sub(complaint.RegisteredAt), nil
		}
		return 0, err
	}
	return at.Sub(latest.CreatedAt), nil
}

func (s *ComplaintService) publish(ctx context.Context, eventType events.EventType, complaintID string, actor events.Actor, payload any) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		Actor:       actor,
		Timestamp:   s.now().UTC(),
		Payload:     payload,
	})
}

func staffActor(staff *domain.StaffMember) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staff.ID}
}

func generateComplaintCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "DEN-" + raw[:8]
}
