package models

import "time"

// RequestStatus is the lifecycle state of an OD request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Decided reports whether the request has left the pending state. The client
// treats decided requests as terminal; the server does not enforce this.
func (s RequestStatus) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// Departments lists the recognised department codes.
var Departments = []string{"CSE", "ECE", "AIDS", "EEE", "MECH", "CIVIL", "IT"}

// ValidDepartment reports whether code is a recognised department.
func ValidDepartment(code string) bool {
	for _, d := range Departments {
		if d == code {
			return true
		}
	}
	return false
}

// ODRequest is a student's on-duty leave petition.
type ODRequest struct {
	ID           string        `db:"id" json:"id"`
	StudentEmail string        `db:"student_email" json:"student_email"`
	Name         string        `db:"name" json:"name"`
	DeptName     string        `db:"dept_name" json:"dept_name"`
	RollNo       string        `db:"roll_no" json:"roll_no"`
	Section      string        `db:"section" json:"section"`
	Reason       string        `db:"reason" json:"reason"`
	Venue        string        `db:"venue" json:"venue"`
	Description  string        `db:"description" json:"description"`
	Status       RequestStatus `db:"status" json:"status"`
	AppliedAt    time.Time     `db:"applied_at" json:"applied_at"`
}

// RequestDraft is the payload a student submits. Identity fields and the
// timestamp are attached by the submitting side; the server overrides status
// and applied_at regardless of what the client sends.
type RequestDraft struct {
	StudentEmail string `json:"student_email" validate:"required,email"`
	Name         string `json:"name" validate:"required"`
	DeptName     string `json:"dept_name" validate:"required"`
	RollNo       string `json:"roll_no" validate:"required"`
	Section      string `json:"section" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
	Venue        string `json:"venue" validate:"required"`
	Description  string `json:"description" validate:"required"`
	AppliedAt    string `json:"applied_at,omitempty"`
}

// StatusUpdate carries a faculty decision.
type StatusUpdate struct {
	Status RequestStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// HistoryEntry is the shape of a student's own history row, with a derived
// display date alongside the raw timestamp.
type HistoryEntry struct {
	ID          string        `json:"id"`
	Date        string        `json:"date"`
	Venue       string        `json:"venue"`
	Reason      string        `json:"reason"`
	Description string        `json:"description"`
	Status      RequestStatus `json:"status"`
	AppliedAt   string        `json:"applied_at"`
}

// RequestStats aggregates counts by status over a whole collection.
type RequestStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}
