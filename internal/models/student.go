package models

import (
	"strings"
	"time"
)

// StudentStatus is the administrative state of a learner.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "actif"
	StudentStatusInactive  StudentStatus = "inactif"
	StudentStatusGraduated StudentStatus = "diplômé"
)

// Student represents a learner registered at the institute.
type Student struct {
	ID                 string        `db:"id" json:"id"`
	RegistrationNumber string        `db:"registration_number" json:"registration_number"`
	FirstName          string        `db:"first_name" json:"first_name"`
	LastName           string        `db:"last_name" json:"last_name"`
	DateOfBirth        *time.Time    `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender             string        `db:"gender" json:"gender"`
	Email              *string       `db:"email" json:"email,omitempty"`
	PhoneParent        *string       `db:"phone_parent" json:"phone_parent,omitempty"`
	Address            *string       `db:"address" json:"address,omitempty"`
	Status             StudentStatus `db:"status" json:"status"`
	FormationID        *string       `db:"formation_id" json:"formation_id,omitempty"`
	EnrollmentDate     time.Time     `db:"enrollment_date" json:"enrollment_date"`
	PhotoURL           *string       `db:"photo_url" json:"photo_url,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search      string
	Status      StudentStatus
	FormationID string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// StudentDetail adds the formation title to a student row.
type StudentDetail struct {
	Student
	FormationTitle *string `db:"formation_title" json:"formation_title,omitempty"`
}
