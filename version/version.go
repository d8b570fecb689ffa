package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Tag is set with -ldflags "-X github.com/agalitsyn/artist-scheduler/version.Tag=v1.2.3".
	Tag      string
	Revision string
	BuildAt  string
	Dirty    bool
)

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range buildInfo.Settings {
		// https://pkg.go.dev/runtime/debug#BuildSetting
		switch setting.Key {
		case "vcs.revision":
			Revision = setting.Value
		case "vcs.time":
			BuildAt = setting.Value
		case "vcs.modified":
			if setting.Value == "true" {
				Dirty = true
			}
		}
	}
}

func String() string {
	// go run
	if Revision == "" {
		return "dev"
	}
	return format(Tag, Revision, BuildAt, Dirty)
}

func format(tag, revision, buildAt string, dirty bool) string {
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if t, err := time.Parse(time.RFC3339, buildAt); err == nil {
		buildAt = t.UTC().Format("2006-01-02 15:04:05")
	}

	s := fmt.Sprintf("%s %s at %s", tag, revision, buildAt)
	if tag == "" {
		s = fmt.Sprintf("%s at %s", revision, buildAt)
	}
	if dirty {
		s += " dirty"
	}
	return s
}
