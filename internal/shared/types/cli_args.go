package types

import "time"

// CLIArgs represents the command-line arguments shared by every report.
type CLIArgs struct {
	ConfigFile  string
	GraccURL    string
	TopologyURL string
	JiraURL     string
	Timeout     int
	Verbose     bool
	NoColor     bool

	Output     string
	Format     string
	ReportName string
	ReportType []string
	Dir        string
	Upload     string
	AWSProfile string
}

// DateRange is a validated pair of CLI dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// TrackerArgs carries the flags of the issue tracker reports.
type TrackerArgs struct {
	Period      DateRange
	Detailed    bool
	EffortHours int
	Projects    []string
}
