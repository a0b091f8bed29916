package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/osg-htc/osg-reports/pkg/version"
)

// displayWelcomeBanner prints the banner and version to w.
func displayWelcomeBanner(w io.Writer) {
	banner := `
   ____   _____  _____      _____                       _
  / __ \ / ____|/ ____|    |  __ \                     | |
 | |  | | (___ | |  __     | |__) |___ _ __   ___  _ __| |_ ___
 | |  | |\___ \| | |_ |    |  _  // _ \ '_ \ / _ \| '__| __/ __|
 | |__| |____) | |__| |    | | \ \  __/ |_) | (_) | |  | |_\__ \
  \____/|_____/ \_____|    |_|  \_\___| .__/ \___/|_|   \__|___/
                                      | |
                                      |_|
`
	orange := color.New(color.FgYellow, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Fprintln(w, orange(banner))
	fmt.Fprintln(w, blue(fmt.Sprintf("OSG Reports CLI (v%s)", version.FormatVersion())))
}

// checkLatestVersion tells the user when a newer release exists. Failures
// are reported but never fatal.
func checkLatestVersion(ctx context.Context, w io.Writer, currentVersion string) {
	latest, newer, err := version.LatestRelease(ctx, currentVersion)
	if err != nil {
		fmt.Fprintln(w, color.YellowString("Could not check for updates: %v", err))
		return
	}
	if newer {
		fmt.Fprintln(w, color.GreenString("A new version of osg-reports is available: %s (you have %s)", latest, currentVersion))
		return
	}
	fmt.Fprintln(w, "You are running the latest version.")
}
