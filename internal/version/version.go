// Package version records the build identity stamped into forge binaries.
// The variables can be overridden at release time via -ldflags.
package version

import "github.com/fatih/color"

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)

	// Version is the bundler's semantic version, colored per segment for
	// terminal display. fatih/color degrades to plain text when the output
	// is not a terminal.
	Version = majorColor.Sprint("0") + "." + minorColor.Sprint("1") + "." + patchColor.Sprint("0") + "-dev"

	// GitCommit is the hash of the commit the binary was built from.
	GitCommit = ""

	// BuildDate is the build timestamp in ISO-8601.
	BuildDate = ""
)
