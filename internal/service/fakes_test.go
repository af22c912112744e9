package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/catalog"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// In-memory repository fakes shared by the service tests.

type fakeComplaintRepo struct {
	complaints map[string]*domain.Complaint
	seq        int
}

func newFakeComplaintRepo() *fakeComplaintRepo {
	return &fakeComplaintRepo{complaints: map[string]*domain.Complaint{}}
}

func (f *fakeComplaintRepo) nextID() string {
	f.seq++
	return fmt.Sprintf("complaint-%d", f.seq)
}

func (f *fakeComplaintRepo) Create(_ context.Context, complaint *domain.Complaint) error {
	complaint.ID = f.nextID()
	complaint.CreatedAt = time.Now()
	complaint.UpdatedAt = complaint.CreatedAt
	clone := *complaint
	f.complaints[complaint.ID] = &clone
	return nil
}

func (f *fakeComplaintRepo) Update(_ context.Context, complaint *domain.Complaint) error {
	if _, ok := f.complaints[complaint.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *complaint
	f.complaints[complaint.ID] = &clone
	return nil
}

func (f *fakeComplaintRepo) SoftDelete(_ context.Context, id string) error {
	complaint, ok := f.complaints[id]
	if !ok || complaint.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	now := time.Now()
	complaint.DeletedAt = &now
	return nil
}

func (f *fakeComplaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	complaint, ok := f.complaints[id]
	if !ok || complaint.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	clone := *complaint
	return &clone, nil
}

func (f *fakeComplaintRepo) GetByCode(_ context.Context, code string) (*domain.Complaint, error) {
	for _, complaint := range f.complaints {
		if complaint.Code == code && complaint.DeletedAt == nil {
			clone := *complaint
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeComplaintRepo) ListWithFilter(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for _, complaint := range f.sorted() {
		if complaint.DeletedAt != nil {
			continue
		}
		if filter.CitizenID != nil && complaint.CitizenID != *filter.CitizenID {
			continue
		}
		if filter.DepartmentID != nil && (complaint.DepartmentID == nil || *complaint.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if filter.AssigneeID != nil && (complaint.AssigneeID == nil || *complaint.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.Unassigned && complaint.AssigneeID != nil {
			continue
		}
		if len(filter.States) > 0 && !contains(filter.States, complaint.StateCode) {
			continue
		}
		result = append(result, *complaint)
	}
	return result, nil
}

func (f *fakeComplaintRepo) ListBreached(_ context.Context, now time.Time, limit int) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for _, complaint := range f.sorted() {
		if complaint.DeletedAt != nil || complaint.ClosedAt != nil {
			continue
		}
		if complaint.SlaDeadline == nil || !complaint.SlaDeadline.Before(now) {
			continue
		}
		if complaint.BreachNotifiedAt != nil {
			continue
		}
		result = append(result, *complaint)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeComplaintRepo) ListApproaching(_ context.Context, now time.Time, window time.Duration, limit int) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for _, complaint := range f.sorted() {
		if complaint.DeletedAt != nil || complaint.ClosedAt != nil {
			continue
		}
		if complaint.SlaDeadline == nil || complaint.ApproachNotifiedAt != nil {
			continue
		}
		if !complaint.SlaDeadline.After(now) || complaint.SlaDeadline.After(now.Add(window)) {
			continue
		}
		result = append(result, *complaint)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeComplaintRepo) CountOpenByAssignee(_ context.Context, assigneeID string) (int, error) {
	count := 0
	for _, complaint := range f.complaints {
		if complaint.DeletedAt == nil && complaint.ClosedAt == nil &&
			complaint.AssigneeID != nil && *complaint.AssigneeID == assigneeID {
			count++
		}
	}
	return count, nil
}

func (f *fakeComplaintRepo) sorted() []*domain.Complaint {
	result := make([]*domain.Complaint, 0, len(f.complaints))
	for _, complaint := range f.complaints {
		result = append(result, complaint)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

type fakeStaffRepo struct {
	members map[string]*domain.StaffMember
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{members: map[string]*domain.StaffMember{}}
}

func (f *fakeStaffRepo) add(staff domain.StaffMember) {
	f.members[staff.ID] = &staff
}

func (f *fakeStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	f.members[staff.ID] = staff
	return nil
}

func (f *fakeStaffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	if _, ok := f.members[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.members[staff.ID] = staff
	return nil
}

func (f *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	staff, ok := f.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *staff
	return &clone, nil
}

func (f *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, staff := range f.members {
		if staff.Email == email {
			clone := *staff
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	ids := make([]string, 0, len(f.members))
	for id := range f.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []domain.StaffMember
	for _, id := range ids {
		staff := f.members[id]
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		if filter.DepartmentID != nil && (staff.DepartmentID == nil || *staff.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if filter.Active != nil && staff.Active != *filter.Active {
			continue
		}
		result = append(result, *staff)
	}
	return result, nil
}

type fakeCategoryRepo struct {
	categories map[string]*domain.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[string]*domain.Category{}}
}

func (f *fakeCategoryRepo) add(category domain.Category) {
	f.categories[category.ID] = &category
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	category, ok := f.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *category
	return &clone, nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	var result []domain.Category
	for _, category := range f.categories {
		result = append(result, *category)
	}
	return result, nil
}

type fakeDepartmentRepo struct{}

func (fakeDepartmentRepo) Create(context.Context, *domain.Department) error { return nil }
func (fakeDepartmentRepo) Update(context.Context, *domain.Department) error { return nil }
func (fakeDepartmentRepo) GetByID(context.Context, string) (*domain.Department, error) {
	return nil, pgx.ErrNoRows
}
func (fakeDepartmentRepo) ListActive(context.Context) ([]domain.Department, error) { return nil, nil }

type fakeCommentRepo struct {
	comments []domain.Comment
	seq      int
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	f.seq++
	comment.ID = fmt.Sprintf("comment-%d", f.seq)
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByComplaint(_ context.Context, complaintID string, includeInternal bool) ([]domain.Comment, error) {
	var result []domain.Comment
	for _, comment := range f.comments {
		if comment.ComplaintID != complaintID {
			continue
		}
		if comment.Internal && !includeInternal {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

type fakeStateChangeRepo struct {
	entries []domain.StateChange
	seq     int
}

func (f *fakeStateChangeRepo) Create(_ context.Context, change *domain.StateChange) error {
	f.seq++
	change.ID = fmt.Sprintf("change-%d", f.seq)
	change.CreatedAt = time.Now()
	f.entries = append(f.entries, *change)
	return nil
}

func (f *fakeStateChangeRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.StateChange, error) {
	var result []domain.StateChange
	for _, entry := range f.entries {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (f *fakeStateChangeRepo) LatestByComplaint(_ context.Context, complaintID string) (*domain.StateChange, error) {
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].ComplaintID == complaintID {
			clone := f.entries[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeAssignmentRepo struct {
	entries []domain.Assignment
	seq     int
}

func (f *fakeAssignmentRepo) Create(_ context.Context, assignment *domain.Assignment) error {
	f.seq++
	assignment.ID = fmt.Sprintf("assignment-%d", f.seq)
	assignment.CreatedAt = time.Now()
	f.entries = append(f.entries, *assignment)
	return nil
}

func (f *fakeAssignmentRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.Assignment, error) {
	var result []domain.Assignment
	for _, entry := range f.entries {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeNotificationRepo struct {
	notifications []domain.Notification
	seq           int
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	f.seq++
	notification.ID = fmt.Sprintf("notification-%d", f.seq)
	notification.CreatedAt = time.Now()
	f.notifications = append(f.notifications, *notification)
	return nil
}

func (f *fakeNotificationRepo) Update(_ context.Context, notification *domain.Notification) error {
	for i := range f.notifications {
		if f.notifications[i].ID == notification.ID {
			f.notifications[i] = *notification
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeNotificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			clone := f.notifications[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeNotificationRepo) ListPending(_ context.Context, limit int) ([]domain.Notification, error) {
	var result []domain.Notification
	for _, notification := range f.notifications {
		if notification.Status != domain.NotificationPending {
			continue
		}
		result = append(result, notification)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, _, _ int) ([]domain.Notification, error) {
	var result []domain.Notification
	for _, notification := range f.notifications {
		if notification.RecipientID != recipientID {
			continue
		}
		if unreadOnly && notification.ReadAt != nil {
			continue
		}
		result = append(result, notification)
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, recipientID string) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].RecipientID == recipientID {
			now := time.Now()
			f.notifications[i].ReadAt = &now
			f.notifications[i].Status = domain.NotificationRead
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, recipientID string) error {
	now := time.Now()
	for i := range f.notifications {
		if f.notifications[i].RecipientID == recipientID && f.notifications[i].ReadAt == nil {
			f.notifications[i].ReadAt = &now
			f.notifications[i].Status = domain.NotificationRead
		}
	}
	return nil
}

// fakeUnitOfWork runs the callback against the same fakes, without
// transactional semantics.
type fakeUnitOfWork struct {
	repos repository.TxRepos
}

func (f *fakeUnitOfWork) Execute(_ context.Context, fn func(repos repository.TxRepos) error) error {
	return fn(f.repos)
}

// failingUnitOfWork rejects every transaction, for atomicity tests.
type failingUnitOfWork struct{ err error }

func (f *failingUnitOfWork) Execute(context.Context, func(repos repository.TxRepos) error) error {
	return f.err
}

type fakeCatalogRepo struct {
	states     []domain.State
	priorities []domain.Priority
	rules      []domain.TransitionRule
}

func (f *fakeCatalogRepo) ListStates(context.Context) ([]domain.State, error) {
	return f.states, nil
}

func (f *fakeCatalogRepo) ListPriorities(context.Context) ([]domain.Priority, error) {
	return f.priorities, nil
}

func (f *fakeCatalogRepo) ListActiveTransitionRules(context.Context) ([]domain.TransitionRule, error) {
	return f.rules, nil
}

// seededCatalog mirrors the seed migration: the standard states, the four
// priorities and the default transition rules.
func seededCatalog() *catalog.Cache {
	repo := &fakeCatalogRepo{
		states: []domain.State{
			{Code: domain.StateRegistered, Name: "Registered", IsInitial: true, SortOrder: 1},
			{Code: domain.StateInReview, Name: "In review", SortOrder: 2},
			{Code: domain.StateInProgress, Name: "In progress", SortOrder: 3},
			{Code: domain.StatePending, Name: "Pending", SortOrder: 4},
			{Code: domain.StateResolved, Name: "Resolved", IsFinal: true, SortOrder: 5},
			{Code: domain.StateRejected, Name: "Rejected", IsFinal: true, SortOrder: 6},
			{Code: domain.StateArchived, Name: "Archived", IsFinal: true, SortOrder: 7},
		},
		priorities: []domain.Priority{
			{Code: "LOW", Name: "Low", SlaHours: 168, SortOrder: 1},
			{Code: "MEDIUM", Name: "Medium", SlaHours: 72, SortOrder: 2},
			{Code: "HIGH", Name: "High", SlaHours: 24, SortOrder: 3},
			{Code: "CRITICAL", Name: "Critical", SlaHours: 4, SortOrder: 4},
		},
		rules: []domain.TransitionRule{
			{ID: "r1", FromState: domain.StateRegistered, ToState: domain.StateInReview, Active: true},
			{ID: "r2", FromState: domain.StateRegistered, ToState: domain.StateInProgress, RequiresAssignee: true, Active: true},
			{ID: "r3", FromState: domain.StateRegistered, ToState: domain.StateRejected, RequiresReason: true, Active: true},
			{ID: "r4", FromState: domain.StateInReview, ToState: domain.StateInProgress, RequiresAssignee: true, Active: true},
			{ID: "r5", FromState: domain.StateInReview, ToState: domain.StateRejected, RequiresReason: true, Active: true},
			{ID: "r6", FromState: domain.StateInProgress, ToState: domain.StatePending, RequiresReason: true, Active: true},
			{ID: "r7", FromState: domain.StateInProgress, ToState: domain.StateResolved, RequiresReason: true, RequiresAssignee: true, Active: true},
			{ID: "r8", FromState: domain.StatePending, ToState: domain.StateInProgress, RequiresAssignee: true, Active: true},
			{ID: "r9", FromState: domain.StateResolved, ToState: domain.StateInProgress, RequiresReason: true, AdminOnly: true, Active: true},
			{ID: "r10", FromState: domain.StateResolved, ToState: domain.StateArchived, AdminOnly: true, Active: true},
			{ID: "r11", FromState: domain.StateRejected, ToState: domain.StateArchived, AdminOnly: true, Active: true},
			{ID: "r12", FromState: domain.StateRejected, ToState: domain.StateInReview, RequiresReason: true, AdminOnly: true, Active: true},
		},
	}
	return catalog.NewCache(repo, nil, time.Minute, zap.NewNop())
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }
