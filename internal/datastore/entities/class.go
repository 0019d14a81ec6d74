package entities

import "time"

// Enrollment statuses.
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusWithdrawn = "withdrawn"
)

// Class is a school class group with an optional enrollment cap.
// MaxCapacity nil means unlimited; such classes never produce capacity alerts.
type Class struct {
	ID                      string    `gorm:"primaryKey;size:36" json:"id"`
	TenantID                string    `gorm:"size:64;not null;index" json:"tenant_id"`
	SchoolID                string    `gorm:"size:64;not null;index" json:"school_id"`
	Name                    string    `gorm:"size:255;not null" json:"name"`
	MaxCapacity             *int      `json:"max_capacity"`
	WarningThresholdPercent int       `gorm:"not null;default:80" json:"warning_threshold_percent"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Class) TableName() string {
	return "classes"
}

// Enrollment links a student to a class. Only rows with status "active"
// count against class capacity.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   string    `gorm:"size:36;not null;index" json:"class_id"`
	StudentID string    `gorm:"size:36;not null;index" json:"student_id"`
	Status    string    `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Enrollment) TableName() string {
	return "class_enrollments"
}
