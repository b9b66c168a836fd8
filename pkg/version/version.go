// Package version carries the build version of the trip planner.
package version

// Set at build time, e.g. go build -ldflags "-X tripplanner/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version, "dev" for development builds.
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"
)
