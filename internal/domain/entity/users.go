package entity

import "time"

// MonthIdentities is the set of identifiers active in one calendar month.
type MonthIdentities struct {
	Month      time.Time
	Identities map[string]struct{}
}

// UserActivity is the result of comparing the latest month against the
// months before it.
type UserActivity struct {
	Month  time.Time `json:"month"`
	Active []string  `json:"active"`
	New    []string  `json:"new"`
}

// MonthlyCount is the number of active identifiers in a month, used for trend bars.
type MonthlyCount struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// OriginUsersReport is the output document of the origin users report.
// Fields are declared in key order.
type OriginUsersReport struct {
	ActiveUsers  int      `json:"Active Users"`
	DateRange    string   `json:"Date Range:"`
	NewUserPaths []string `json:"New Users (directory paths)"`
	NewUsers     int      `json:"Number of new users"`

	Monthly []MonthlyCount `json:"-"`
}
