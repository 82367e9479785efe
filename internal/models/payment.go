package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates accepted settlement channels.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "Espèces"
	PaymentMethodCheque      PaymentMethod = "Chèque"
	PaymentMethodTransfer    PaymentMethod = "Virement"
	PaymentMethodMobileMoney PaymentMethod = "Mobile Money"
)

// PaymentMethods lists methods in display order.
var PaymentMethods = []PaymentMethod{PaymentMethodCash, PaymentMethodCheque, PaymentMethodTransfer, PaymentMethodMobileMoney}

// Payment is one settlement applied against an invoice.
type Payment struct {
	ID                   string          `db:"id" json:"id"`
	InvoiceID            string          `db:"invoice_id" json:"invoice_id"`
	Amount               decimal.Decimal `db:"amount" json:"amount"`
	Method               PaymentMethod   `db:"method" json:"method"`
	TransactionReference *string         `db:"transaction_reference" json:"transaction_reference,omitempty"`
	PaymentDate          *time.Time      `db:"payment_date" json:"payment_date,omitempty"`
	Notes                *string         `db:"notes" json:"notes,omitempty"`
	RecordedBy           *string         `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentDetail adds invoice and student labels.
type PaymentDetail struct {
	Payment
	InvoiceNumber string `db:"invoice_number" json:"invoice_number"`
	StudentName   string `db:"student_name" json:"student_name"`
}

// PaymentFilter provides filters for listing payments.
type PaymentFilter struct {
	InvoiceID string
	Method    PaymentMethod
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
