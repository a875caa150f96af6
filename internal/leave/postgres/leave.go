package postgres

import (
	"context"
	"errors"
	"time"

	leaveDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leave"
	"github.com/frahmantamala/leave-management/internal/leave"
	"gorm.io/gorm"
)

// LeaveRepository implements the leave.Repository interface using GORM
type LeaveRepository struct {
	db *gorm.DB
}

func NewLeaveRepository(db *gorm.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

func (r *LeaveRepository) Create(ctx context.Context, l *leave.LeaveRequest) error {
	return r.db.WithContext(ctx).Create(leave.ToDataModel(l)).Error
}

func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	var row leaveDatamodel.LeaveRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leave.ErrNotFound
		}
		return nil, err
	}
	return leave.FromDataModel(&row), nil
}

func (r *LeaveRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*leave.LeaveRequest, error) {
	var rows []*leaveDatamodel.LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return leave.FromDataModelSlice(rows), nil
}

func (r *LeaveRepository) List(ctx context.Context, q leave.Query) ([]*leave.LeaveRequest, error) {
	tx := r.db.WithContext(ctx).Model(&leaveDatamodel.LeaveRequest{})
	if q.EmployeeIDs != nil {
		if len(q.EmployeeIDs) == 0 {
			return []*leave.LeaveRequest{}, nil
		}
		tx = tx.Where("employee_id IN ?", q.EmployeeIDs)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}

	var rows []*leaveDatamodel.LeaveRequest
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return leave.FromDataModelSlice(rows), nil
}

func (r *LeaveRepository) DeletePending(ctx context.Context, id, employeeID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND employee_id = ? AND status = ?", id, employeeID, string(leave.StatusPending)).
		Delete(&leaveDatamodel.LeaveRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *LeaveRepository) TransitionStatus(ctx context.Context, id string, from, to leave.Status, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&leaveDatamodel.LeaveRequest{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
