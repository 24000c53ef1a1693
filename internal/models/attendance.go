package models

import "time"

// AttendanceStatus marks a student's presence for a day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// AttendanceRecord is one student's status for one calendar day.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceFilter encapsulates list query parameters.
type AttendanceFilter struct {
	StudentID string
	SectionID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    *AttendanceStatus
	Page      int
	PageSize  int
}

// MarkAttendanceEntry is one student's mark within a bulk request.
type MarkAttendanceEntry struct {
	StudentID string           `json:"student_id" validate:"required,uuid"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
	Remarks   *string          `json:"remarks,omitempty"`
}

// MarkAttendanceRequest records attendance for a set of students on a date.
type MarkAttendanceRequest struct {
	Date    time.Time             `json:"date" validate:"required"`
	Entries []MarkAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}
