// Package version carries build metadata stamped in with -ldflags "-X".
package version

import "fmt"

var (
	// Version is the firmware release
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for the startup log and -version.
func String() string {
	return fmt.Sprintf("powerguard %s (%s, built %s)", Version, GitSHA, BuildTime)
}
