// Package buildinfo carries version data stamped in at link time.
package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitHash string // short git commit hash
)

var started = time.Now().UTC()

// Info is the build description served by the status endpoint
type Info struct {
	Version    string `json:"version"`
	BuildTime  string `json:"buildTime,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	StartedAt  string `json:"startedAt"`
}

// Get returns the build description
func Get() Info {
	return Info{
		Version:    Version,
		BuildTime:  BuildTime,
		CommitHash: CommitHash,
		StartedAt:  started.Format(time.RFC3339),
	}
}

// Uptime is the time since the process started
func Uptime() time.Duration {
	return time.Since(started)
}
