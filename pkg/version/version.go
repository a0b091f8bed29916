package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// Defaults, overridden by ldflags or build info.
var Version = "0.0.0-dev"
var Commit = ""
var BuildTime = ""

// ReleasesURL is the GitHub API endpoint of the latest release.
var ReleasesURL = "https://api.github.com/repos/osg-htc/osg-reports/releases/latest"

// populateFromBuildInfo fills Version/Commit/BuildTime from the VCS settings
// embedded by the Go toolchain unless ldflags already set a release version.
func populateFromBuildInfo() {
	if Version != "" && Version != "0.0.0-dev" {
		return
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return
	}

	get := func(key string) (string, bool) {
		for _, s := range bi.Settings {
			if s.Key == key {
				return s.Value, true
			}
		}
		return "", false
	}

	if Commit == "" {
		if rev, ok := get("vcs.revision"); ok && len(rev) >= 7 {
			Commit = rev[:7]
		}
	}

	if BuildTime == "" {
		if t, ok := get("vcs.time"); ok && t != "" {
			if ts, err := time.Parse(time.RFC3339, t); err == nil {
				BuildTime = ts.UTC().Format("2006-01-02T15:04:05Z")
			}
		}
	}

	modified := false
	if m, ok := get("vcs.modified"); ok && strings.EqualFold(m, "true") {
		modified = true
	}

	if tag, ok := get("vcs.tag"); ok && tag != "" {
		Version = strings.TrimPrefix(tag, "v")
		if modified {
			Version += "-dirty"
		}
	}
}

func init() {
	populateFromBuildInfo()
}

// LatestRelease asks GitHub for the latest release tag. It returns the tag
// without its "v" prefix and whether it is newer than currentVersion.
// Development builds are never compared.
func LatestRelease(ctx context.Context, currentVersion string) (string, bool, error) {
	if strings.HasSuffix(currentVersion, "-dev") {
		return "", false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ReleasesURL, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("checking latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("checking latest release: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.Unmarshal(body, &release); err != nil {
		return "", false, fmt.Errorf("decoding release: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	return latest, newer(latest, currentVersion), nil
}

// newer compares dotted numeric versions; non-numeric parts compare lexically.
func newer(latest, current string) bool {
	lp := strings.Split(strings.SplitN(latest, "-", 2)[0], ".")
	cp := strings.Split(strings.SplitN(current, "-", 2)[0], ".")
	for i := 0; i < len(lp) || i < len(cp); i++ {
		var l, c string
		if i < len(lp) {
			l = lp[i]
		}
		if i < len(cp) {
			c = cp[i]
		}
		var ln, cn int
		_, lerr := fmt.Sscanf(l, "%d", &ln)
		_, cerr := fmt.Sscanf(c, "%d", &cn)
		if lerr == nil && cerr == nil {
			if ln != cn {
				return ln > cn
			}
			continue
		}
		if l != c {
			return l > c
		}
	}
	return false
}

// FormatVersion returns the version with commit and build time, e.g.
// "1.2.3 (commit: abc1234, built at: 2025-10-23T10:20:30Z)".
func FormatVersion() string {
	ver := Version
	if ver == "" {
		ver = "0.0.0-dev"
	}

	commit := Commit
	if commit == "" {
		commit = "development"
	}

	if commit == "development" && BuildTime == "" {
		return fmt.Sprintf("%s (development)", ver)
	}

	if BuildTime != "" {
		return fmt.Sprintf("%s (commit: %s, built at: %s)", ver, commit, BuildTime)
	}

	return fmt.Sprintf("%s (commit: %s)", ver, commit)
}
