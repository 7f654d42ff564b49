package types

import (
	"encoding/json"
	"time"
)

// Bug priority and status enums.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusTesting    = "testing"
	StatusClosed     = "closed"
)

// ValidBugStatus reports whether s is one of the allowed status values.
func ValidBugStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusTesting, StatusClosed:
		return true
	}
	return false
}

type Bug struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ProjectID   int64     `json:"project_id"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	AssignedTo  *int64    `json:"assigned_to"`
	ReportedBy  int64     `json:"reported_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined columns.
	ProjectName    string  `json:"project_name,omitempty"`
	AssignedToName *string `json:"assigned_to_name,omitempty"`
}

// BugFilter is an optional conjunction over list filters; nil fields are
// omitted from the query entirely.
type BugFilter struct {
	ProjectID  *int64
	Status     *string
	Priority   *string
	AssignedTo *int64
}

type CreateBugParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ProjectID   int64  `json:"project_id"`
	Priority    string `json:"priority"`
	AssignedTo  *int64 `json:"assigned_to"`
}

// OptionalInt64 distinguishes an absent JSON key from an explicit null, which
// the assigned_to field needs: present-but-null means "unassign".
type OptionalInt64 struct {
	Set   bool
	Value *int64
}

func (o *OptionalInt64) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// UpdateBugParams is the typed partial-update structure for bugs. String
// fields apply only when present and non-empty; AssignedTo applies whenever
// the key was present.
type UpdateBugParams struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Priority    *string       `json:"priority,omitempty"`
	Status      *string       `json:"status,omitempty"`
	AssignedTo  OptionalInt64 `json:"assigned_to"`
}

// HasUpdates reports whether any recognized field would change the row.
func (p UpdateBugParams) HasUpdates() bool {
	return (p.Title != nil && *p.Title != "") ||
		(p.Description != nil && *p.Description != "") ||
		(p.Priority != nil && *p.Priority != "") ||
		(p.Status != nil && *p.Status != "") ||
		p.AssignedTo.Set
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type BugPage struct {
	Bugs       []Bug      `json:"bugs"`
	Pagination Pagination `json:"pagination"`
}
