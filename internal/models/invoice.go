package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is derived from payments on read; the stored value is informative only.
type InvoiceStatus string

const (
	InvoiceStatusPaid    InvoiceStatus = "payée"
	InvoiceStatusPartial InvoiceStatus = "partielle"
	InvoiceStatusUnpaid  InvoiceStatus = "impayée"
	InvoiceStatusOverdue InvoiceStatus = "en retard"
)

// Invoice is a billable amount tied to one enrollment.
type Invoice struct {
	ID            string          `db:"id" json:"id"`
	EnrollmentID  string          `db:"enrollment_id" json:"enrollment_id"`
	StudentID     *string         `db:"student_id" json:"student_id,omitempty"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	DueDate       *time.Time      `db:"due_date" json:"due_date,omitempty"`
	Status        InvoiceStatus   `db:"status" json:"status"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// InvoiceView is an invoice enriched with its reconciled balance.
type InvoiceView struct {
	Invoice
	StudentName string          `db:"student_name" json:"student_name,omitempty"`
	PaidAmount  decimal.Decimal `db:"-" json:"paid_amount"`
	Remaining   decimal.Decimal `db:"-" json:"remaining"`
}

// InvoiceFilter provides filters for listing invoices.
type InvoiceFilter struct {
	EnrollmentID string
	StudentID    string
	Search       string
	Status       InvoiceStatus
	// Today is the reference day for the derived status filter.
	Today        time.Time
	Page         int
	PageSize     int
}
