package version

import (
	"runtime"
	"runtime/debug"
	"time"
)

// GITVERSION is injected by the build with -ldflags.
var GITVERSION = "v0.0.0-dev"

// BuildVersionInfo describes the binary that is running.
type BuildVersionInfo struct {
	GitVersion string    `json:"gitversion" yaml:"gitversion"`
	GitCommit  string    `json:"gitcommit" yaml:"gitcommit"`
	BuildDate  time.Time `json:"builddate" yaml:"builddate"`
	GOOS       string    `json:"goos" yaml:"goos"`
	GOARCH     string    `json:"goarch" yaml:"goarch"`
}

// Get returns the build information of the current binary.
func Get() *BuildVersionInfo {
	info := &BuildVersionInfo{
		GitVersion: GITVERSION,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.GitCommit = setting.Value
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				info.BuildDate = t
			}
		}
	}
	return info
}
