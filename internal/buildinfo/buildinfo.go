// Package buildinfo reports the dtrack version for `dtrack version` and the
// health endpoint.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

const devVersion = "0.1.0"

// Linker-overridable build metadata.
var (
	Version    = devVersion
	CommitHash = ""
	BuildDate  = ""
)

// Info is normalized build metadata for display.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit"`
	BuildDate  string `json:"buildDate"`
}

// String renders "dtrack <version> (<commit>, <date>)".
func (i Info) String() string {
	return fmt.Sprintf("dtrack %s (%s, %s)", i.Version, shortHash(i.CommitHash), i.BuildDate)
}

// Current returns linker overrides, falling back to the module version and
// VCS stamps embedded by the Go toolchain.
func Current() Info {
	info := Info{
		Version:    strings.TrimSpace(Version),
		CommitHash: strings.TrimSpace(CommitHash),
		BuildDate:  strings.TrimSpace(BuildDate),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuild(&info, bi)
	}
	if parsed, err := time.Parse(time.RFC3339, info.BuildDate); err == nil {
		info.BuildDate = parsed.UTC().Format("2006-01-02 15:04:05 UTC")
	}
	info.Version = orUnknown(info.Version)
	info.CommitHash = orUnknown(info.CommitHash)
	info.BuildDate = orUnknown(info.BuildDate)
	return info
}

func fillFromBuild(info *Info, bi *debug.BuildInfo) {
	if (info.Version == "" || info.Version == devVersion) && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = strings.TrimSpace(s.Value)
	}
	if info.CommitHash == "" {
		info.CommitHash = settings["vcs.revision"]
		if info.CommitHash != "" && strings.EqualFold(settings["vcs.modified"], "true") {
			info.CommitHash += "-dirty"
		}
	}
	if info.BuildDate == "" {
		info.BuildDate = settings["vcs.time"]
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 7 && !strings.HasSuffix(h, "-dirty") {
		return h[:7]
	}
	return h
}
