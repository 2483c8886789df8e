// Package version holds build metadata injected via ldflags.
// The ragdex server reports these in its startup log line.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
