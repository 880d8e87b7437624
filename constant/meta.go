// Package constant defines immutable application-level identifiers and build metadata.
package constant

const (
	// Ringplayer is the canonical application identifier used for filesystem paths and CLI branding.
	Ringplayer = "ringplayer"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is the default HTTP User-Agent sent by network data sources.
	UserAgent = Ringplayer + "/" + Version
)

// Build metadata, overridden through -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
