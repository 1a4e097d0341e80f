// Package version reports build metadata injected with -ldflags -X.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the one-line version banner. Unset commit and date fall
// back to the VCS stamp the Go toolchain embeds.
func String() string {
	commit, date := Commit, Date
	if info, ok := debug.ReadBuildInfo(); ok {
		commit, date = fromBuildInfo(info, commit, date)
	}
	return "voce " + Version + " (commit=" + commit + ", date=" + date + ", go=" + runtime.Version() + ")"
}

func fromBuildInfo(info *debug.BuildInfo, commit string, date string) (string, string) {
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "none" && setting.Value != "" {
				commit = setting.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			}
		case "vcs.time":
			if date == "unknown" && setting.Value != "" {
				date = setting.Value
			}
		}
	}
	return commit, date
}
