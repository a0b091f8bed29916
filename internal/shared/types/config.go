package types

// Config represents the application configuration that can be loaded from a file.
type Config struct {
	GraccURL      string `json:"gracc_url" yaml:"gracc_url" toml:"gracc_url" mapstructure:"gracc_url"`
	SummaryIndex  string `json:"summary_index" yaml:"summary_index" toml:"summary_index" mapstructure:"summary_index"`
	RawIndex      string `json:"raw_index" yaml:"raw_index" toml:"raw_index" mapstructure:"raw_index"`
	TransferIndex string `json:"transfer_index" yaml:"transfer_index" toml:"transfer_index" mapstructure:"transfer_index"`

	TopologyURL    string `json:"topology_url" yaml:"topology_url" toml:"topology_url" mapstructure:"topology_url"`
	TopologyITBURL string `json:"topology_itb_url" yaml:"topology_itb_url" toml:"topology_itb_url" mapstructure:"topology_itb_url"`

	JiraURL   string `json:"jira_url" yaml:"jira_url" toml:"jira_url" mapstructure:"jira_url"`
	JiraUser  string `json:"jira_user" yaml:"jira_user" toml:"jira_user" mapstructure:"jira_user"`
	JiraToken string `json:"jira_token" yaml:"jira_token" toml:"jira_token" mapstructure:"jira_token"`

	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" mapstructure:"timeout_seconds"`

	// Developers is the roster whose worklogs are counted.
	Developers     []string `json:"developers" yaml:"developers" toml:"developers" mapstructure:"developers"`
	StaleAssignees []string `json:"stale_assignees" yaml:"stale_assignees" toml:"stale_assignees" mapstructure:"stale_assignees"`

	// AccessPoints are the ProbeNames of the submit hosts used by the wait time report.
	AccessPoints []string `json:"access_points" yaml:"access_points" toml:"access_points" mapstructure:"access_points"`

	PanelWindows  []int `json:"panel_windows" yaml:"panel_windows" toml:"panel_windows" mapstructure:"panel_windows"`
	CCStarWindows []int `json:"ccstar_windows" yaml:"ccstar_windows" toml:"ccstar_windows" mapstructure:"ccstar_windows"`

	AWSProfile string `json:"aws_profile" yaml:"aws_profile" toml:"aws_profile" mapstructure:"aws_profile"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	return &Config{
		GraccURL:       "https://gracc.opensciencegrid.org/q",
		SummaryIndex:   "gracc.osg.summary",
		RawIndex:       "gracc.osg.raw*",
		TransferIndex:  "xrd-stash*",
		TopologyURL:    "https://topology.opensciencegrid.org",
		TopologyITBURL: "https://topology-itb.opensciencegrid.org",
		JiraURL:        "https://opensciencegrid.atlassian.net",
		TimeoutSeconds: 300,
		AccessPoints: []string{
			"condor-ap:login04.osgconnect.net",
			"condor-ap:login05.osgconnect.net",
			"condor-ap:ap20.uc.osg-htc.org",
			"condor-ap:ap21.uc.osg-htc.org",
			"condor-ap:ap22.uc.osg-htc.org",
			"condor-ap:ap23.uc.osg-htc.org",
			"condor-ap:ap40.uw.osg-htc.org",
		},
		PanelWindows:  []int{1, 30, 365},
		CCStarWindows: []int{30, 90, 365},
	}
}

// Merge copies every non-zero field of other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	mergeString(&c.GraccURL, other.GraccURL)
	mergeString(&c.SummaryIndex, other.SummaryIndex)
	mergeString(&c.RawIndex, other.RawIndex)
	mergeString(&c.TransferIndex, other.TransferIndex)
	mergeString(&c.TopologyURL, other.TopologyURL)
	mergeString(&c.TopologyITBURL, other.TopologyITBURL)
	mergeString(&c.JiraURL, other.JiraURL)
	mergeString(&c.JiraUser, other.JiraUser)
	mergeString(&c.JiraToken, other.JiraToken)
	mergeString(&c.AWSProfile, other.AWSProfile)
	if other.TimeoutSeconds > 0 {
		c.TimeoutSeconds = other.TimeoutSeconds
	}
	if len(other.Developers) > 0 {
		c.Developers = other.Developers
	}
	if len(other.StaleAssignees) > 0 {
		c.StaleAssignees = other.StaleAssignees
	}
	if len(other.AccessPoints) > 0 {
		c.AccessPoints = other.AccessPoints
	}
	if len(other.PanelWindows) > 0 {
		c.PanelWindows = other.PanelWindows
	}
	if len(other.CCStarWindows) > 0 {
		c.CCStarWindows = other.CCStarWindows
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
