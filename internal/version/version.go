package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the binary. Set with
	// -ldflags "-X hotel-metrics/internal/version.Version=...".
	Version = "dev"
	// Commit is the git commit hash. Overridden at build time.
	Commit = "unknown"
	// BuildDate is the build timestamp. Overridden at build time.
	BuildDate = "unknown"
)

// String renders build metadata, one field per line.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\ngo: %s\n", Version, Commit, BuildDate, runtime.Version())
}
