package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AdmissionStatus tracks the lifecycle of an application.
type AdmissionStatus string

const (
	AdmissionStatusDraft       AdmissionStatus = "draft"
	AdmissionStatusSubmitted   AdmissionStatus = "submitted"
	AdmissionStatusUnderReview AdmissionStatus = "under_review"
	AdmissionStatusAccepted    AdmissionStatus = "accepted"
	AdmissionStatusRejected    AdmissionStatus = "rejected"
	AdmissionStatusEnrolled    AdmissionStatus = "enrolled"
)

var admissionTransitions = map[AdmissionStatus][]AdmissionStatus{
	AdmissionStatusSubmitted:   {AdmissionStatusUnderReview, AdmissionStatusAccepted, AdmissionStatusRejected, AdmissionStatusEnrolled},
	AdmissionStatusUnderReview: {AdmissionStatusUnderReview, AdmissionStatusAccepted, AdmissionStatusRejected, AdmissionStatusEnrolled},
}

// CanTransition reports whether moving from one status to another is allowed.
func (s AdmissionStatus) CanTransition(target AdmissionStatus) bool {
	for _, allowed := range admissionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AdmissionForm holds the section-wise application payload as JSONB.
type AdmissionForm map[string]json.RawMessage

// Value implements driver.Valuer.
func (f AdmissionForm) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *AdmissionForm) Scan(src interface{}) error {
	if src == nil {
		*f = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("admission form: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, f)
}

// AdmissionDraft is an in-progress application saved section by section.
type AdmissionDraft struct {
	ID                   string        `db:"id" json:"id"`
	DraftID              string        `db:"draft_id" json:"draft_id"`
	Email                string        `db:"email" json:"email"`
	Form                 AdmissionForm `db:"form" json:"form"`
	LastCompletedSection string        `db:"last_completed_section" json:"last_completed_section"`
	ExpiresAt            time.Time     `db:"expires_at" json:"expires_at"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

// AdmissionApplication is a submitted application under review.
type AdmissionApplication struct {
	ID              string          `db:"id" json:"id"`
	AdmissionNo     string          `db:"admission_no" json:"admission_no"`
	FirstName       string          `db:"first_name" json:"first_name"`
	MiddleName      *string         `db:"middle_name" json:"middle_name,omitempty"`
	LastName        string          `db:"last_name" json:"last_name"`
	Email           string          `db:"email" json:"email"`
	AppliedClass    string          `db:"applied_class" json:"applied_class"`
	AcademicSession string          `db:"academic_session" json:"academic_session"`
	Status          AdmissionStatus `db:"status" json:"status"`
	Form            AdmissionForm   `db:"form" json:"form"`
	Active          bool            `db:"active" json:"active"`
	AdmissionDate   *time.Time      `db:"admission_date" json:"admission_date,omitempty"`
	Remarks         *string         `db:"remarks" json:"remarks,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// AdmissionFilter encapsulates list query parameters.
type AdmissionFilter struct {
	Status       *AdmissionStatus
	AppliedClass string
	Search       string
	Page         int
	PageSize     int
}

// SaveDraftRequest upserts an in-progress application.
type SaveDraftRequest struct {
	DraftID              string        `json:"draft_id,omitempty"`
	Email                string        `json:"email" validate:"required,email"`
	Form                 AdmissionForm `json:"form" validate:"required"`
	LastCompletedSection string        `json:"last_completed_section"`
}

// SubmitAdmissionRequest promotes a draft into a submitted application.
type SubmitAdmissionRequest struct {
	DraftID         string  `json:"draft_id" validate:"required"`
	FirstName       string  `json:"first_name" validate:"required"`
	MiddleName      *string `json:"middle_name,omitempty"`
	LastName        string  `json:"last_name" validate:"required"`
	AppliedClass    string  `json:"applied_class" validate:"required"`
	AcademicSession string  `json:"academic_session" validate:"required"`
}

// UpdateAdmissionStatusRequest is the admin decision payload.
type UpdateAdmissionStatusRequest struct {
	Status  AdmissionStatus `json:"status" validate:"required,oneof=under_review accepted rejected enrolled"`
	Remarks *string         `json:"remarks,omitempty"`
}
