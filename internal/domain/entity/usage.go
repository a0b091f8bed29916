package entity

import "time"

// Window is a half-open interval [Start, End) of Days length.
type Window struct {
	Days  int       `json:"days"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowUsage holds the aggregation results for one window.
type WindowUsage struct {
	Window    Window   `json:"window"`
	CoreHours float64  `json:"core_hours"`
	FQDNCount int64    `json:"fqdn_count"`
	Resources []string `json:"resources"`
}

// Hours returns the core-hours truncated toward zero, the way they are displayed.
func (w WindowUsage) Hours() int64 {
	return int64(w.CoreHours)
}

// Panel is one row of the usage dashboard: a named filter evaluated over
// several windows.
type Panel struct {
	Name    string        `json:"name"`
	Windows []WindowUsage `json:"windows"`
}

// FacilityUsage is a facility (or organization) bucket from the accounting index.
type FacilityUsage struct {
	Name      string  `json:"name"`
	CoreHours float64 `json:"core_hours"`
	CCStar    bool    `json:"cc_star"`
}

// ActiveCampusReport lists the facilities or organizations with active
// researchers in a date range.
type ActiveCampusReport struct {
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	GroupBy    string          `json:"group_by"`
	Facilities []FacilityUsage `json:"facilities"`
	Caveat     string          `json:"caveat,omitempty"`
}

// FacilityListReport is a titled, sorted list of facility names.
type FacilityListReport struct {
	Title      string   `json:"title"`
	Facilities []string `json:"facilities"`
}
