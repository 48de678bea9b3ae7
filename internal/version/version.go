// Package version reports the keyissuer build version.
package version

import (
	"runtime"
	"strings"
)

// Version is the release version. Overridden at build time with
// -ldflags "-X github.com/gobeyondidentity/keyissuer/internal/version.Version=...".
var Version = "dev"

// Commit is the source revision the binary was built from.
var Commit = "unknown"

// String returns the version with a single 'v' prefix for display.
func String() string {
	return "v" + strings.TrimPrefix(Version, "v")
}

// Info is the structured form printed by `keyissuer version -o json`.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns build information for the running binary.
func Get() Info {
	return Info{
		Version:   String(),
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
