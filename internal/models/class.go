package models

import "time"

// Class represents a grade level, e.g. "Grade 5".
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Section is a named division of a class, e.g. "Section A".
// Section names are unique within a class.
type Section struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ClassID   string    `db:"class_id" json:"class_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SectionDetail adds roster context for listings.
type SectionDetail struct {
	Section
	ClassName    string `db:"class_name" json:"class_name"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// ClassDetail bundles a class with its sections and subjects.
type ClassDetail struct {
	Class
	Sections []Section `json:"sections"`
	Subjects []Subject `json:"subjects"`
}

// CreateClassRequest payload for registering a class.
type CreateClassRequest struct {
	Name         string `json:"name" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

// UpdateClassRequest carries merge-semantics updates.
type UpdateClassRequest struct {
	Name         *string `json:"name,omitempty"`
	AcademicYear *string `json:"academic_year,omitempty"`
}

// CreateSectionRequest adds a section to a class.
type CreateSectionRequest struct {
	Name string `json:"name" validate:"required"`
}

// AssignSubjectsRequest attaches subjects to a class by id.
type AssignSubjectsRequest struct {
	SubjectIDs []string `json:"subject_ids" validate:"required,min=1,dive,uuid"`
}
