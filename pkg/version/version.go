// Package version carries the build identity stamped into release binaries.
package version

import (
	"fmt"
	"runtime"
)

// Set at release time through -ldflags; a plain source build reports "dev".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
	BuiltBy = "unknown"
)

// Info is the build identity of the running binary.
type Info struct {
	Version  string
	Commit   string
	Date     string
	BuiltBy  string
	Go       string
	Platform string
}

// GetInfo collects the stamped values plus the runtime's own details.
func GetInfo() Info {
	return Info{
		Version:  Version,
		Commit:   Commit,
		Date:     Date,
		BuiltBy:  BuiltBy,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersion returns the bare version string.
func GetVersion() string {
	return Version
}

// String renders the multi-line form shown by the version command.
func (i Info) String() string {
	return fmt.Sprintf("pdfgenie version %s\ncommit: %s\nbuilt: %s\nby: %s\ngo: %s\nplatform: %s",
		i.Version, i.Commit, i.Date, i.BuiltBy, i.Go, i.Platform)
}
