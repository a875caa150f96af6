package leave

import "time"

type LeaveRequest struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	EmployeeID string    `gorm:"column:employee_id;type:varchar(36);not null;index"`
	FromDate   time.Time `gorm:"column:from_date;type:date;not null"`
	ToDate     time.Time `gorm:"column:to_date;type:date;not null"`
	Type       string    `gorm:"column:type;type:varchar(16);not null"`
	Reason     string    `gorm:"column:reason;not null"`
	Status     string    `gorm:"column:status;type:varchar(16);not null;default:Pending;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}
