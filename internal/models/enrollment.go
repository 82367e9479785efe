package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "en attente"
	EnrollmentStatusActive    EnrollmentStatus = "actif"
	EnrollmentStatusCompleted EnrollmentStatus = "terminé"
	EnrollmentStatusCancelled EnrollmentStatus = "annulé"
)

// Enrollment is a student's registration into a session.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	SessionID      string           `db:"session_id" json:"session_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	TotalAmount    decimal.Decimal  `db:"total_amount" json:"total_amount"`
	PaidAmount     decimal.Decimal  `db:"paid_amount" json:"paid_amount"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and session info.
type EnrollmentDetail struct {
	Enrollment
	StudentName    string `db:"student_name" json:"student_name"`
	ModuleTitle    string `db:"module_title" json:"module_title"`
	FormationID    string `db:"formation_id" json:"formation_id"`
	FormationTitle string `db:"formation_title" json:"formation_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	SessionID string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
}
