// Package buildinfo provides build-time version information.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/matzehuels/tikzcell/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/tikzcell/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/tikzcell/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries built with `go install module@version` carry no ldflags; for
// those [Resolve] reads the module version and VCS stamp from the binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

const unset = "dev"

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = unset

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Resolve fills Version, Commit and Date from the embedded build info when
// they were not set via ldflags.
func Resolve() {
	info, ok := debug.ReadBuildInfo()
	if !ok || Version != unset {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			Commit = s.Value
		case "vcs.time":
			Date = s.Value
		}
	}
}

// Info is a snapshot of the build metadata, as reported by the HTTP
// server's health check.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"built"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
