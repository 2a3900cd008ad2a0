// Package version reports which paymentsmcp build is running.
//
// Releases are tagged vX.Y.Z and installed with
//
//	go install github.com/nextapp/paymentsmcp/cmd/paymentsmcp@vX.Y.Z
//
// The Go toolchain stamps the module version and the VCS revision into the
// binary, and init copies them into Version, Commit and Date. A build from a
// git checkout reports a pseudo-version, or "dev" when the toolchain stamps
// none.
// Packagers who build outside the module cache can still pin the values with
// -ldflags "-X github.com/nextapp/paymentsmcp/pkg/version.Version=..."; a
// value set that way is never overwritten.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unset = "unknown"

var (
	// Version is the release tag without the leading "v", or "dev".
	Version = "dev"

	// Commit is the abbreviated git revision the binary was built from.
	Commit = unset

	// Date is the commit time in RFC3339 format.
	Date = unset

	// GoVersion is the toolchain that built the binary.
	GoVersion = runtime.Version()
)

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		Version, Commit, Date = stamp(bi, Version, Commit, Date)
	}
}

// stamp fills whichever of version, commit and date are still at their
// defaults from the toolchain's build info.
func stamp(bi *debug.BuildInfo, version, commit, date string) (string, string, string) {
	if version == "dev" {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			version = trimV(v)
		}
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == unset && s.Value != "" {
				commit = s.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			}
		case "vcs.time":
			if date == unset && s.Value != "" {
				date = s.Value
			}
		}
	}
	return version, commit, date
}

func trimV(v string) string {
	if len(v) > 1 && v[0] == 'v' {
		return v[1:]
	}
	return v
}

// BuildInfo is the JSON shape of `paymentsmcp version --json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String is the one-line banner printed by `paymentsmcp version`.
func String() string {
	return fmt.Sprintf("paymentsmcp %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// Short returns just the version string.
func Short() string {
	return Version
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
