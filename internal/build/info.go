// Package build carries version information stamped in at link time.
package build

import (
	"fmt"
	"log/slog"
)

// These variables are set at build time via -ldflags, e.g.
//
//	-X github.com/shaharia-lab/mailjob/internal/build.Version=v1.2.0
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}

// Attrs returns the build info as a log group.
func Attrs() slog.Attr {
	return slog.Group("build",
		slog.String("version", Version),
		slog.String("commit", CommitSHA),
		slog.String("date", BuildDate),
	)
}
