// Package version holds build-time version information, injected via -ldflags.
package version

var (
	// Version is the semantic version of the build.
	Version = "0.1.0-dev"
	// Commit is the git commit SHA of the build.
	Commit = "unknown"
)
