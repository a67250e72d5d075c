// Build metadata stamped in via -ldflags at release time: version, commit hash
// and build timestamp, plus the process start time and the test-mode switch.
// The release pipeline addresses these symbols by name with -X; renaming them
// breaks the stamping.

package utils

import (
	"log/slog"
	"strconv"
	"time"
)

var (
	TestMode   string // Set to a boolean string by test builds.
	IsTestMode bool
	Version    string
	Commit     string
	BuildTime  string
	StartTime  time.Time
)

func init() {
	StartTime = time.Now()

	// Dev builds carry no stamps; make that explicit rather than empty.
	for _, stamp := range []*string{&Version, &Commit, &BuildTime} {
		if *stamp == "" {
			*stamp = "unknown"
		}
	}
	if TestMode != "" {
		isTestMode, err := strconv.ParseBool(TestMode)
		if err != nil {
			slog.Warn("Failed to parse TestMode build flag, defaulting to false", "error", err)
		}
		IsTestMode = isTestMode
	}
}
