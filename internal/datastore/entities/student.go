package entities

import "time"

// Student carries the denormalized counters the attendance service maintains.
// The alert engine only reads these; it never owns attendance bookkeeping.
type Student struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	TenantID         string     `gorm:"size:64;not null;index" json:"tenant_id"`
	SchoolID         string     `gorm:"size:64;not null;index" json:"school_id"`
	FullName         string     `gorm:"size:255;not null" json:"full_name"`
	Absences30d      int        `gorm:"not null;default:0" json:"absences_30d"`
	PresentDays      int        `gorm:"not null;default:0" json:"present_days"`
	TrackedDays      int        `gorm:"not null;default:0" json:"tracked_days"`
	LastAttendanceAt *time.Time `json:"last_attendance_at"`
	EnrolledAt       *time.Time `json:"enrolled_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Student) TableName() string {
	return "students"
}
