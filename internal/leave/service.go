package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	coreuser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/notification"
)

const notifyTimeout = 5 * time.Second

// Repository defines the data access methods for leave requests
type Repository interface {
	Create(ctx context.Context, l *LeaveRequest) error
	GetByID(ctx context.Context, id string) (*LeaveRequest, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*LeaveRequest, error)
	List(ctx context.Context, q Query) ([]*LeaveRequest, error)
	// DeletePending removes the request only while it is still pending and
	// owned by employeeID. It reports whether a row was removed.
	DeletePending(ctx context.Context, id, employeeID string) (bool, error)
	// TransitionStatus updates the status only if the current one is from.
	TransitionStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)
}

// UserDirectory resolves employees and admins.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*coreuser.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*coreuser.User, error)
	ListAdmins(ctx context.Context) ([]*coreuser.User, error)
	SearchIDsByName(ctx context.Context, term string) ([]string, error)
}

type Notifier interface {
	LeaveSubmitted(ctx context.Context, admins []notification.Recipient, applicant string, d notification.LeaveDetails) error
	LeaveStatusChanged(ctx context.Context, owner notification.Recipient, d notification.LeaveDetails) error
}

type ServiceAPI interface {
	Apply(ctx context.Context, employeeID string, dto ApplyLeaveDTO) (*LeaveView, error)
	ListOwn(ctx context.Context, employeeID string) ([]LeaveView, error)
	Cancel(ctx context.Context, employeeID, id string) error
	ListAll(ctx context.Context, filter ListFilter) ([]LeaveView, error)
	UpdateStatus(ctx context.Context, id string, dto UpdateStatusDTO) (*LeaveView, error)
}

// Service handles leave request business logic
type Service struct {
	repo     Repository
	users    UserDirectory
	notifier Notifier
	logger   *slog.Logger
}

func NewService(repo Repository, users UserDirectory, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// Apply creates a pending leave request for the employee and tells the admins.
func (s *Service) Apply(ctx context.Context, employeeID string, dto ApplyLeaveDTO) (*LeaveView, error) {
	from, to, leaveType, appErr := dto.Validate()
	if appErr != nil {
		s.logger.DebugContext(ctx, "leave validation failed", "error", appErr, "employee_id", employeeID)
		return nil, appErr
	}

	employee, err := s.users.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	l := NewLeaveRequest(employeeID, from, to, leaveType, dto.Reason)
	if err := s.repo.Create(ctx, l); err != nil {
		s.logger.ErrorContext(ctx, "failed to create leave request", "error", err, "employee_id", employeeID)
		return nil, fmt.Errorf("failed to create leave request: %w", err)
	}

	s.logger.InfoContext(ctx, "leave request created", "leave_id", l.ID, "employee_id", employeeID, "type", l.Type)
	s.notifyAdmins(ctx, employee, l)

	view := NewLeaveView(l, employee.Name)
	return &view, nil
}

// ListOwn returns the employee's requests, oldest first.
func (s *Service) ListOwn(ctx context.Context, employeeID string) ([]LeaveView, error) {
	employee, err := s.users.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list leave requests", "error", err, "employee_id", employeeID)
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}

	views := make([]LeaveView, len(rows))
	for i, l := range rows {
		views[i] = NewLeaveView(l, employee.Name)
	}
	return views, nil
}

// Cancel deletes one of the employee's own pending requests. Requests owned by
// someone else are reported as not found.
func (s *Service) Cancel(ctx context.Context, employeeID, id string) error {
	l, err := s.getOwned(ctx, employeeID, id)
	if err != nil {
		return err
	}
	if !l.CanCancel() {
		return internal.ErrLeaveNotPending
	}

	deleted, err := s.repo.DeletePending(ctx, id, employeeID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to cancel leave request", "error", err, "leave_id", id)
		return fmt.Errorf("failed to cancel leave request: %w", err)
	}
	if !deleted {
		// An admin decided it (or it was removed) between the read and the delete.
		if _, err := s.getOwned(ctx, employeeID, id); err != nil {
			return err
		}
		return internal.ErrLeaveNotPending
	}

	s.logger.InfoContext(ctx, "leave request cancelled", "leave_id", id, "employee_id", employeeID)
	return nil
}

// ListAll returns requests across employees, optionally narrowed by
// employee, status and a case-insensitive employee name search.
func (s *Service) ListAll(ctx context.Context, filter ListFilter) ([]LeaveView, error) {
	var q Query
	if filter.Status != "" {
		status, ok := ParseStatus(filter.Status)
		if !ok {
			return nil, internal.NewValidationFieldError("status", "status must be one of: Pending, Approved, Rejected", internal.ErrCodeInvalidStatus)
		}
		q.Status = status
	}

	if filter.EmployeeID != "" {
		q.EmployeeIDs = []string{filter.EmployeeID}
	}

	if filter.Search != "" {
		matched, err := s.users.SearchIDsByName(ctx, filter.Search)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to search employees", "error", err)
			return nil, err
		}
		q.EmployeeIDs = intersect(q.EmployeeIDs, matched)
		if len(q.EmployeeIDs) == 0 {
			return []LeaveView{}, nil
		}
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list all leave requests", "error", err)
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}

	ids := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, l := range rows {
		if _, ok := seen[l.EmployeeID]; !ok {
			seen[l.EmployeeID] = struct{}{}
			ids = append(ids, l.EmployeeID)
		}
	}
	employees, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]LeaveView, len(rows))
	for i, l := range rows {
		name := ""
		if e, ok := employees[l.EmployeeID]; ok {
			name = e.Name
		}
		views[i] = NewLeaveView(l, name)
	}
	return views, nil
}

// UpdateStatus approves or rejects a pending request and tells its owner.
func (s *Service) UpdateStatus(ctx context.Context, id string, dto UpdateStatusDTO) (*LeaveView, error) {
	target, appErr := dto.Validate()
	if appErr != nil {
		return nil, appErr
	}

	l, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.Transition(target); err != nil {
		return nil, err
	}

	updated, err := s.repo.TransitionStatus(ctx, id, StatusPending, target, l.UpdatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update leave status", "error", err, "leave_id", id)
		return nil, fmt.Errorf("failed to update leave status: %w", err)
	}
	if !updated {
		if _, err := s.get(ctx, id); err != nil {
			return nil, err
		}
		return nil, internal.ErrLeaveFinalized
	}

	s.logger.InfoContext(ctx, "leave status updated", "leave_id", id, "status", target)

	name := ""
	owner, err := s.users.GetByID(ctx, l.EmployeeID)
	if err != nil {
		s.logger.WarnContext(ctx, "leave owner not found, skipping notification", "error", err, "leave_id", id)
	} else {
		name = owner.Name
		s.notifyOwner(ctx, owner, l)
	}

	view := NewLeaveView(l, name)
	return &view, nil
}

func (s *Service) get(ctx context.Context, id string) (*LeaveRequest, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrLeaveNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get leave request", "error", err, "leave_id", id)
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	return l, nil
}

func (s *Service) getOwned(ctx context.Context, employeeID, id string) (*LeaveRequest, error) {
	l, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.OwnedBy(employeeID) {
		return nil, internal.ErrLeaveNotFound
	}
	return l, nil
}

// notifyAdmins and notifyOwner run after the change is committed. Their
// failures are logged and never reach the caller.
func (s *Service) notifyAdmins(ctx context.Context, employee *coreuser.User, l *LeaveRequest) {
	ctx, cancel := internal.DetachedWithTimeout(ctx, notifyTimeout)
	defer cancel()

	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load admins for notification", "error", err, "leave_id", l.ID)
		return
	}
	recipients := make([]notification.Recipient, 0, len(admins))
	for _, a := range admins {
		recipients = append(recipients, notification.Recipient{Name: a.Name, Email: a.Email})
	}
	if err := s.notifier.LeaveSubmitted(ctx, recipients, employee.Name, details(l)); err != nil {
		s.logger.WarnContext(ctx, "failed to queue leave submitted notification", "error", err, "leave_id", l.ID)
	}
}

func (s *Service) notifyOwner(ctx context.Context, owner *coreuser.User, l *LeaveRequest) {
	ctx, cancel := internal.DetachedWithTimeout(ctx, notifyTimeout)
	defer cancel()

	to := notification.Recipient{Name: owner.Name, Email: owner.Email}
	if err := s.notifier.LeaveStatusChanged(ctx, to, details(l)); err != nil {
		s.logger.WarnContext(ctx, "failed to queue leave status notification", "error", err, "leave_id", l.ID)
	}
}

func details(l *LeaveRequest) notification.LeaveDetails {
	return notification.LeaveDetails{
		ID:       l.ID,
		Type:     string(l.Type),
		FromDate: l.FromDate,
		ToDate:   l.ToDate,
		Reason:   l.Reason,
		Status:   string(l.Status),
	}
}

// intersect treats a nil base as "everything".
func intersect(base, ids []string) []string {
	if base == nil {
		if ids == nil {
			return []string{}
		}
		return ids
	}
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := []string{}
	for _, id := range base {
		if _, ok := keep[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
