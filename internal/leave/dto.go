package leave

import (
	"strings"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
)

const maxReasonLength = 1000

// ApplyLeaveDTO represents the request payload for applying for leave
type ApplyLeaveDTO struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

// Validate checks the payload and returns the parsed dates and type.
func (dto ApplyLeaveDTO) Validate() (from, to time.Time, leaveType Type, appErr *internal.AppError) {
	v := validation.NewValidator()
	v.Field("fromDate", dto.FromDate).Required().Date()
	v.Field("toDate", dto.ToDate).Required().Date()
	v.Field("type", dto.Type).Required().Custom(func(value interface{}) *internal.AppError {
		if _, ok := ParseType(value.(string)); !ok {
			return internal.NewValidationFieldError("type", "type must be one of: "+strings.Join(Types(), ", "), internal.ErrCodeInvalidLeaveType)
		}
		return nil
	})
	v.Field("reason", dto.Reason).Required().MaxLength(maxReasonLength)
	if appErr = v.Validate(); appErr != nil {
		return
	}

	from, _ = validation.ParseDate(dto.FromDate)
	to, _ = validation.ParseDate(dto.ToDate)
	leaveType, _ = ParseType(dto.Type)

	if from.After(to) {
		appErr = internal.NewValidationFieldError("fromDate", "From date must be before to date", internal.ErrCodeInvalidDateRange)
	}
	return
}

// UpdateStatusDTO represents the request for deciding a leave request
type UpdateStatusDTO struct {
	Status string `json:"status"`
}

func (dto UpdateStatusDTO) Validate() (Status, *internal.AppError) {
	v := validation.NewValidator()
	v.Field("status", dto.Status).Required().Custom(func(value interface{}) *internal.AppError {
		if s, ok := ParseStatus(value.(string)); !ok || !s.IsDecision() {
			return internal.NewValidationFieldError("status", "status must be one of: Approved, Rejected", internal.ErrCodeInvalidStatus)
		}
		return nil
	})
	if appErr := v.Validate(); appErr != nil {
		return "", appErr
	}
	status, _ := ParseStatus(dto.Status)
	return status, nil
}

// ListFilter narrows the admin listing. Empty fields do not filter.
type ListFilter struct {
	EmployeeID string
	Status     string
	Search     string
}

// Query is the repository-level form of ListFilter. A nil EmployeeIDs
// matches every employee; an empty non-nil slice matches none.
type Query struct {
	EmployeeIDs []string
	Status      Status
}

type EmployeeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LeaveView is a leave request as returned to clients.
type LeaveView struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employeeId"`
	Employee   EmployeeRef `json:"employee"`
	FromDate   string      `json:"fromDate"`
	ToDate     string      `json:"toDate"`
	Type       Type        `json:"type"`
	Reason     string      `json:"reason"`
	Status     Status      `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func NewLeaveView(l *LeaveRequest, employeeName string) LeaveView {
	return LeaveView{
		ID:         l.ID,
		EmployeeID: l.EmployeeID,
		Employee:   EmployeeRef{ID: l.EmployeeID, Name: employeeName},
		FromDate:   l.FromDate.Format(validation.DateLayout),
		ToDate:     l.ToDate.Format(validation.DateLayout),
		Type:       l.Type,
		Reason:     l.Reason,
		Status:     l.Status,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

type LeaveResponse struct {
	Message string    `json:"message"`
	Leave   LeaveView `json:"leave"`
}
