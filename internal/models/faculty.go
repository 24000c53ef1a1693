package models

import "time"

// Faculty represents a teaching or administrative staff member.
type Faculty struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	EmployeeID     string     `db:"employee_id" json:"employee_id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	MiddleName     *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName       string     `db:"last_name" json:"last_name"`
	Gender         string     `db:"gender" json:"gender"`
	DateOfBirth    time.Time  `db:"date_of_birth" json:"date_of_birth"`
	JoiningDate    time.Time  `db:"joining_date" json:"joining_date"`
	Qualification  string     `db:"qualification" json:"qualification"`
	ExperienceYrs  int        `db:"experience_years" json:"experience_years"`
	Designation    string     `db:"designation" json:"designation"`
	Department     string     `db:"department" json:"department"`
	ContactNumber  string     `db:"contact_number" json:"contact_number"`
	Email          string     `db:"email" json:"email"`
	ClassTeacherOf *string    `db:"class_teacher_of" json:"class_teacher_of,omitempty"`
	Active         bool       `db:"active" json:"active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// FacultyDetail adds resolved subject and class references.
type FacultyDetail struct {
	Faculty
	Username   string   `db:"username" json:"username"`
	SubjectIDs []string `db:"-" json:"subject_ids"`
	ClassIDs   []string `db:"-" json:"class_ids"`
}

// FacultyFilter encapsulates list query parameters.
type FacultyFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// CreateFacultyRequest is the admin payload for onboarding staff.
// Subjects and classes may be referenced by name and are resolved server-side.
type CreateFacultyRequest struct {
	FirstName     string     `json:"first_name" validate:"required"`
	MiddleName    *string    `json:"middle_name,omitempty"`
	LastName      string     `json:"last_name" validate:"required"`
	Gender        string     `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth   time.Time  `json:"date_of_birth" validate:"required"`
	JoiningDate   *time.Time `json:"joining_date,omitempty"`
	Qualification string     `json:"qualification"`
	ExperienceYrs int        `json:"experience_years" validate:"gte=0"`
	Designation   string     `json:"designation" validate:"required"`
	Department    string     `json:"department"`
	ContactNumber string     `json:"contact_number"`
	Email         string     `json:"email,omitempty" validate:"omitempty,email"`
	Password      string     `json:"password,omitempty" validate:"omitempty,min=6"`
	SubjectNames  []string   `json:"subject_names,omitempty"`
	ClassNames    []string   `json:"class_names,omitempty"`
}

// UpdateFacultyRequest carries merge-semantics updates.
type UpdateFacultyRequest struct {
	FirstName     *string    `json:"first_name,omitempty"`
	MiddleName    *string    `json:"middle_name,omitempty"`
	LastName      *string    `json:"last_name,omitempty"`
	Gender        *string    `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	JoiningDate   *time.Time `json:"joining_date,omitempty"`
	Qualification *string    `json:"qualification,omitempty"`
	ExperienceYrs *int       `json:"experience_years,omitempty" validate:"omitempty,gte=0"`
	Designation   *string    `json:"designation,omitempty"`
	Department    *string    `json:"department,omitempty"`
	ContactNumber *string    `json:"contact_number,omitempty"`
	Active        *bool      `json:"active,omitempty"`
	SubjectNames  []string   `json:"subject_names,omitempty"`
	ClassNames    []string   `json:"class_names,omitempty"`
}
