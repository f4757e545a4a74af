// Package version provides version information for the wifi-capture tools
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables that can be set via ldflags
var (
	// Version is the main version number that is being run at the moment
	Version = "0.1"

	// GitCommit is the git sha1 that was compiled. This will be filled in by the compiler
	GitCommit = "unknown"

	// BuildDate is the date the binary was built
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetVersionInfo returns formatted version information
func GetVersionInfo(appName string) string {
	result := fmt.Sprintf("%s version %s", appName, Version)

	if GitCommit != "unknown" {
		commit := GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		result += fmt.Sprintf(" (commit %s)", commit)
	}
	if BuildDate != "unknown" {
		result += fmt.Sprintf("\nBuilt: %s", BuildDate)
	}

	result += fmt.Sprintf("\nGo: %s", runtime.Version())
	result += fmt.Sprintf("\nPlatform: %s/%s", runtime.GOOS, runtime.GOARCH)

	return result
}
