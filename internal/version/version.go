// Package version holds build metadata, set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"     // ex: v0.1.0
	Commit    = "none"    // ex: abcd123
	BuildDate = "unknown" // ex: 2026-08-11T18:42:00Z
	GoVersion = runtime.Version()
)

// String is a one-line summary for logs.
func String() string {
	return fmt.Sprintf("wander %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
