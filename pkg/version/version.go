// Package version reports the build version of the redial tools.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time with -ldflags "-X github.com/redial-io/redial-go/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = ""
)

// Info is the resolved build identity.
type Info struct {
	Version string
	Commit  string
	Dirty   bool
}

// Get returns the linker-provided version, falling back to the module
// and VCS data embedded by the Go toolchain.
func Get() Info {
	return resolve(Version, Commit, readBuildInfo)
}

func readBuildInfo() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

func resolve(ver, commit string, read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Version: ver, Commit: commit}

	bi, ok := read()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// String formats the info as "version (commit)", with the commit
// shortened to 12 characters and "+dirty" for modified trees.
func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s", i.Version, commit)
	if i.Dirty {
		b.WriteString("+dirty")
	}
	b.WriteString(")")
	return b.String()
}

// String returns Get().String().
func String() string {
	return Get().String()
}
