package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CertificateStatus tracks validity of an issued certificate.
type CertificateStatus string

const (
	CertificateStatusValid   CertificateStatus = "valide"
	CertificateStatusRevoked CertificateStatus = "révoqué"
)

// Certificate attests completion of a formation.
type Certificate struct {
	ID                string            `db:"id" json:"id"`
	StudentID         string            `db:"student_id" json:"student_id"`
	FormationID       string            `db:"formation_id" json:"formation_id"`
	EnrollmentID      *string           `db:"enrollment_id" json:"enrollment_id,omitempty"`
	CertificateNumber string            `db:"certificate_number" json:"certificate_number"`
	Grade             decimal.Decimal   `db:"grade" json:"grade"`
	AttendanceRate    decimal.Decimal   `db:"attendance_rate" json:"attendance_rate"`
	IssueDate         time.Time         `db:"issue_date" json:"issue_date"`
	Status            CertificateStatus `db:"status" json:"status"`
	RevokedReason     *string           `db:"revoked_reason" json:"revoked_reason,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// CertificateDetail adds student and formation labels.
type CertificateDetail struct {
	Certificate
	StudentName    string `db:"student_name" json:"student_name"`
	FormationTitle string `db:"formation_title" json:"formation_title"`
}

// CertificateFilter provides filters for listing certificates.
type CertificateFilter struct {
	StudentID   string
	FormationID string
	Status      CertificateStatus
	Page        int
	PageSize    int
}
