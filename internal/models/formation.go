package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormationType classifies training programmes.
type FormationType string

const (
	FormationTypeCertifying FormationType = "certifiante"
	FormationTypeDiploma    FormationType = "diplomante"
	FormationTypeService    FormationType = "service"
)

// Formation is a training programme made of modules.
type Formation struct {
	ID              string          `db:"id" json:"id"`
	Title           string          `db:"title" json:"title"`
	Type            FormationType   `db:"type" json:"type"`
	Category        *string         `db:"category" json:"category,omitempty"`
	DurationMonths  int             `db:"duration_months" json:"duration_months"`
	RegistrationFee decimal.Decimal `db:"registration_fee" json:"registration_fee"`
	TuitionFee      decimal.Decimal `db:"tuition_fee" json:"tuition_fee"`
	Description     *string         `db:"description" json:"description,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// TotalFee is the amount invoiced for one enrollment.
func (f Formation) TotalFee() decimal.Decimal {
	return f.RegistrationFee.Add(f.TuitionFee)
}

// FormationFilter defines list filters for formations.
type FormationFilter struct {
	Search   string
	Type     FormationType
	Page     int
	PageSize int
}

// Module is one teaching unit of a formation.
type Module struct {
	ID          string    `db:"id" json:"id"`
	FormationID string    `db:"formation_id" json:"formation_id"`
	Title       string    `db:"title" json:"title"`
	Hours       int       `db:"hours" json:"hours"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ModuleFilter defines list filters for modules.
type ModuleFilter struct {
	FormationID string
	Page        int
	PageSize    int
}
