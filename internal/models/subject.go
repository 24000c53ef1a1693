package models

import "time"

// Subject represents a taught subject in the curriculum.
type Subject struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Code       string    `db:"code" json:"code"`
	Type       string    `db:"type" json:"type"`
	Department string    `db:"department" json:"department"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter encapsulates list query parameters.
type SubjectFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
}

// CreateSubjectRequest payload for registering a subject.
type CreateSubjectRequest struct {
	Name       string `json:"name" validate:"required"`
	Code       string `json:"code" validate:"required"`
	Type       string `json:"type" validate:"omitempty,oneof=core elective language activity"`
	Department string `json:"department"`
}

// UpdateSubjectRequest carries merge-semantics updates.
type UpdateSubjectRequest struct {
	Name       *string `json:"name,omitempty"`
	Code       *string `json:"code,omitempty"`
	Type       *string `json:"type,omitempty" validate:"omitempty,oneof=core elective language activity"`
	Department *string `json:"department,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}
