package leave

import (
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	leaveDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leave"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, true
	case "approved":
		return StatusApproved, true
	case "rejected":
		return StatusRejected, true
	default:
		return "", false
	}
}

// IsDecision reports whether s is a status an admin may move a request to.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

type Type string

const (
	TypeSick   Type = "sick"
	TypeCasual Type = "casual"
	TypeAnnual Type = "annual"
)

func Types() []string {
	return []string{string(TypeSick), string(TypeCasual), string(TypeAnnual)}
}

func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeSick, TypeCasual, TypeAnnual:
		return t, true
	default:
		return "", false
	}
}

var ErrNotFound = errors.New("leave request not found")

type LeaveRequest struct {
	ID         string
	EmployeeID string
	FromDate   time.Time
	ToDate     time.Time
	Type       Type
	Reason     string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewLeaveRequest(employeeID string, from, to time.Time, leaveType Type, reason string) *LeaveRequest {
	now := time.Now()
	return &LeaveRequest{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		FromDate:   from,
		ToDate:     to,
		Type:       leaveType,
		Reason:     reason,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (l *LeaveRequest) CanCancel() bool {
	return l.Status == StatusPending
}

func (l *LeaveRequest) OwnedBy(userID string) bool {
	return l.EmployeeID == userID
}

// Transition moves a pending request to a decision. Decided requests are final.
func (l *LeaveRequest) Transition(target Status) error {
	if !target.IsDecision() {
		return internal.NewValidationFieldError("status", "status must be one of: Approved, Rejected", internal.ErrCodeInvalidStatus)
	}
	if l.Status != StatusPending {
		return internal.ErrLeaveFinalized
	}
	l.Status = target
	l.UpdatedAt = time.Now()
	return nil
}

func ToDataModel(l *LeaveRequest) *leaveDatamodel.LeaveRequest {
	return &leaveDatamodel.LeaveRequest{
		ID:         l.ID,
		EmployeeID: l.EmployeeID,
		FromDate:   l.FromDate,
		ToDate:     l.ToDate,
		Type:       string(l.Type),
		Reason:     l.Reason,
		Status:     string(l.Status),
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

func FromDataModel(l *leaveDatamodel.LeaveRequest) *LeaveRequest {
	return &LeaveRequest{
		ID:         l.ID,
		EmployeeID: l.EmployeeID,
		FromDate:   l.FromDate,
		ToDate:     l.ToDate,
		Type:       Type(l.Type),
		Reason:     l.Reason,
		Status:     Status(l.Status),
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*leaveDatamodel.LeaveRequest) []*LeaveRequest {
	result := make([]*LeaveRequest, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
