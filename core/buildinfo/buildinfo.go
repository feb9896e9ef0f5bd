// Package buildinfo describes the running binary. Release builds set the
// variables below with -ldflags -X, local builds fall back to the VCS stamp
// the Go toolchain embeds.
//
//	-X 'github.com/m3rciful/juliabot/core/buildinfo.Version=v1.2.3'
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info is the resolved build description.
type Info struct {
	Version  string
	Commit   string
	Date     string
	Modified bool
}

// Read resolves the build description, preferring values set at link time.
func Read() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value[:min(12, len(s.Value))]
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "local"
	}
	return info
}
