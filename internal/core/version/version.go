// Package version reports what build is running. The values are stamped
// with -ldflags "-X linkshell/internal/core/version.version=v0.3.0" and
// likewise for commit and date
package version

import "fmt"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Service names the running binary. linkshell-api unless a command overrides it
var Service = "linkshell-api"

// BuildInfo is served by /meta/version
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func Info() BuildInfo {
	return BuildInfo{Service: Service, Version: version, Commit: commit, Date: date}
}

// UserAgent is sent on outbound engine calls, e.g. "linkshell-api/v0.3.0 (abc123)"
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", Service, version, commit)
}
