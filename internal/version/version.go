// Package version holds build metadata stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/emergent-company/typegraph/internal/version.Version=1.2.0"
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// VersionInfo is the build metadata reported by /health and /debug.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

func Info() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}
}

// String renders the build as "1.2.0 (abc1234, 2026-01-02T15:04:05Z)".
func (v VersionInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", v.Version, v.GitCommit, v.BuildTime)
}
