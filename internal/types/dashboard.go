package types

// DashboardStats carries the headline counters for the dashboard view.
type DashboardStats struct {
	TotalBugs      int `json:"total_bugs"`
	OpenBugs       int `json:"open_bugs"`
	InProgressBugs int `json:"in_progress_bugs"`
	ResolvedBugs   int `json:"resolved_bugs"`
	CriticalBugs   int `json:"critical_bugs"`
	TotalProjects  int `json:"total_projects"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

type DashboardCharts struct {
	StatusDistribution   []StatusCount   `json:"status_distribution"`
	PriorityDistribution []PriorityCount `json:"priority_distribution"`
}

type Dashboard struct {
	Stats      DashboardStats  `json:"stats"`
	RecentBugs []Bug           `json:"recent_bugs"`
	MyBugs     []Bug           `json:"my_bugs"`
	Charts     DashboardCharts `json:"charts"`
}
