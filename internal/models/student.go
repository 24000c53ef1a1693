package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Guardian is one entry of a student's ordered guardian list.
type Guardian struct {
	Relation   string `json:"relation" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Occupation string `json:"occupation,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
}

// GuardianList stores guardians as a JSONB column.
type GuardianList []Guardian

// Value implements driver.Valuer.
func (g GuardianList) Value() (driver.Value, error) {
	if g == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g)
}

// Scan implements sql.Scanner.
func (g *GuardianList) Scan(src interface{}) error {
	if src == nil {
		*g = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("guardians: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, g)
}

// Address is a student's home address stored as a JSONB column.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src interface{}) error {
	if src == nil {
		*a = Address{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("address: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// Student represents a learner registered in the institution.
type Student struct {
	ID              string       `db:"id" json:"id"`
	UserID          string       `db:"user_id" json:"user_id"`
	AdmissionNo     string       `db:"admission_no" json:"admission_no"`
	FirstName       string       `db:"first_name" json:"first_name"`
	MiddleName      *string      `db:"middle_name" json:"middle_name,omitempty"`
	LastName        string       `db:"last_name" json:"last_name"`
	Gender          string       `db:"gender" json:"gender"`
	DateOfBirth     time.Time    `db:"date_of_birth" json:"date_of_birth"`
	BloodGroup      *string      `db:"blood_group" json:"blood_group,omitempty"`
	ClassID         string       `db:"class_id" json:"class_id"`
	SectionID       string       `db:"section_id" json:"section_id"`
	RollNumber      *int         `db:"roll_number" json:"roll_number,omitempty"`
	AcademicYear    string       `db:"academic_year" json:"academic_year"`
	Guardians       GuardianList `db:"guardians" json:"guardians"`
	Address         Address      `db:"address" json:"address"`
	Phone           string       `db:"phone" json:"phone"`
	Active          bool         `db:"active" json:"active"`
	AdmissionDate   *time.Time   `db:"admission_date" json:"admission_date,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with class and section context.
type StudentDetail struct {
	Student
	ClassName   string `db:"class_name" json:"class_name"`
	SectionName string `db:"section_name" json:"section_name"`
	Username    string `db:"username" json:"username"`
	Email       string `db:"email" json:"email"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassID   string
	SectionID string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateStudentRequest is the admin payload for registering a student.
// Class and section are referenced by name and resolved server-side.
type CreateStudentRequest struct {
	FirstName    string       `json:"first_name" validate:"required"`
	MiddleName   *string      `json:"middle_name,omitempty"`
	LastName     string       `json:"last_name" validate:"required"`
	Gender       string       `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth  time.Time    `json:"date_of_birth" validate:"required"`
	BloodGroup   *string      `json:"blood_group,omitempty"`
	ClassName    string       `json:"class_name" validate:"required"`
	SectionName  string       `json:"section_name" validate:"required"`
	RollNumber   *int         `json:"roll_number,omitempty"`
	AcademicYear string       `json:"academic_year" validate:"required"`
	Guardians    GuardianList `json:"guardians" validate:"required,min=1,dive"`
	Address      Address      `json:"address"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email,omitempty" validate:"omitempty,email"`
	Password     string       `json:"password,omitempty" validate:"omitempty,min=6"`
}

// UpdateStudentRequest carries merge-semantics updates: nil fields keep the
// stored value.
type UpdateStudentRequest struct {
	FirstName    *string       `json:"first_name,omitempty"`
	MiddleName   *string       `json:"middle_name,omitempty"`
	LastName     *string       `json:"last_name,omitempty"`
	Gender       *string       `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	DateOfBirth  *time.Time    `json:"date_of_birth,omitempty"`
	BloodGroup   *string       `json:"blood_group,omitempty"`
	ClassName    *string       `json:"class_name,omitempty"`
	SectionName  *string       `json:"section_name,omitempty"`
	RollNumber   *int          `json:"roll_number,omitempty"`
	AcademicYear *string       `json:"academic_year,omitempty"`
	Guardians    *GuardianList `json:"guardians,omitempty" validate:"omitempty,min=1,dive"`
	Address      *Address      `json:"address,omitempty"`
	Phone        *string       `json:"phone,omitempty"`
	Active       *bool         `json:"active,omitempty"`
}
