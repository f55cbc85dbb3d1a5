package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Release builds set these with ldflags:
//
//	go build -ldflags="-X github.com/muurk/robowifi/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/robowifi/internal/version.Commit=abc123"
//
// Other builds fall back to VCS data from the build info, then to "dev".
var (
	Version = ""
	Commit  = ""
)

const shortCommit = 7

func init() {
	if Version == "" || Commit == "" {
		fromBuildInfo()
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills whichever of Version and Commit is unset from the
// vcs.* build settings. Build info carries no tags, so the version is a dev
// version dated by the commit.
func fromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if rev := settings["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > shortCommit {
			rev = rev[:shortCommit]
		}
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	if Version == "" {
		if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent with every robot API request
func UserAgent() string {
	return "robowifi/" + Version
}
