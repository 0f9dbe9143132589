// Package version carries build information stamped in with ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags, e.g.
// go build -ldflags="-X github.com/andywolf/prompttoproduct/internal/version.Version=v1.0.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Name is the binary name used in version output.
const Name = "p2p"

// BuildInfo is the JSON form of the build information.
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the current build information.
func Get() BuildInfo {
	return BuildInfo{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short returns the version string.
func Short() string {
	return Version
}

// Info returns a single line such as
// "p2p v1.2.3 (commit: abc1234, built: 2026-01-15T10:30:00Z, go: go1.25.0)".
func Info() string {
	b := Get()
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		b.Name, b.Version, shortCommit(b.Commit), b.BuildDate, b.GoVersion)
}

// Full returns multi-line version output.
func Full() string {
	b := Get()
	return fmt.Sprintf(`%s %s
  Commit:     %s
  Built:      %s
  Go version: %s
  OS/Arch:    %s`,
		b.Name, b.Version, b.Commit, b.BuildDate, b.GoVersion, b.Platform)
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
