package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Grade is one evaluation result of an enrollment.
type Grade struct {
	ID             string          `db:"id" json:"id"`
	EnrollmentID   string          `db:"enrollment_id" json:"enrollment_id"`
	EvaluationName string          `db:"evaluation_name" json:"evaluation_name"`
	Value          decimal.Decimal `db:"value" json:"value"`
	MaxValue       decimal.Decimal `db:"max_value" json:"max_value"`
	Weight         decimal.Decimal `db:"weight" json:"weight"`
	Date           time.Time       `db:"date" json:"date"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// GradeFilter provides filters for listing grades.
type GradeFilter struct {
	EnrollmentID string
	Page         int
	PageSize     int
}
