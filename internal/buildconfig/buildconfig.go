package buildconfig

import "runtime/debug"

// Set with -ldflags "-X github.com/xoslabs/workforce/internal/buildconfig.version=..."
var (
	version   = "dev"
	commit    = ""
	buildTime = ""
)

func Version() string {
	return version
}

// Commit returns the ldflags commit, falling back to the VCS revision the Go
// toolchain stamps into the binary.
func Commit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

// VersionInfo is served by GET /version.
func VersionInfo() map[string]string {
	info := map[string]string{
		"version": version,
		"commit":  Commit(),
	}
	if buildTime != "" {
		info["buildTime"] = buildTime
	}
	return info
}
