package config

// Set with -ldflags at release time:
//
//	go build -ldflags "-X commitcard/internal/config.version=$(git describe --tags) \
//	    -X commitcard/internal/config.commit=$(git rev-parse --short HEAD)" ./cmd/notifier
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo reads the linker-injected variables.
func NewBuildInfo() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}

// UserAgent is the User-Agent sent to Teams when TEAMS_USER_AGENT is unset.
func (b BuildInfo) UserAgent() string {
	return "CommitCard-Notifier/" + b.Version
}
