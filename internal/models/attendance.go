package models

import "time"

// AttendanceStatus describes presence at a session day.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "présent"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "retard"
	AttendanceStatusExcused AttendanceStatus = "excusé"
)

// Attendance records one day of presence for an enrollment.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	Date         time.Time        `db:"date" json:"date"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Notes        *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter provides filters for listing attendance rows.
type AttendanceFilter struct {
	EnrollmentID string
	Date         *time.Time
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}
