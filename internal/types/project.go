package types

import "time"

const ProjectStatusActive = "active"

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	BugCount    int       `json:"bug_count"`
}

type CreateProjectParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// UpdateProjectParams is the typed partial-update structure for projects.
type UpdateProjectParams struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (p UpdateProjectParams) HasUpdates() bool {
	return (p.Name != nil && *p.Name != "") ||
		(p.Description != nil && *p.Description != "") ||
		(p.Status != nil && *p.Status != "")
}
