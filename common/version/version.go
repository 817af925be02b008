// Package version exposes build metadata injected at link time.
package version

var (
	// Version is the semantic version, set via -ldflags.
	Version = "v0.0.0-dev"

	// GitCommit is the short commit hash, set via -ldflags.
	GitCommit = "unknown"
)

// Info returns the version and commit as a single display string.
func Info() string {
	return Version + " (" + GitCommit + ")"
}
