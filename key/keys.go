// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount represents the total cardinality of the application configuration schema.
const DefinedFieldsCount = 18

// Playback Engine - these keys configure the external engine process and its buffering policy.
const (
	PlayerBackend       = "player.backend"
	PlayerPlayWhenReady = "player.play_when_ready"
	PlayerHWDec         = "player.hwdec"
	PlayerMinBufferMs   = "player.min_buffer_ms"
	PlayerMinRebufferMs = "player.min_rebuffer_ms"
	PlayerResume        = "player.resume"
)

// Transport Controls - these keys define the seek steps bound to the fast-forward and rewind keys.
const (
	PlayerSeekForwardMs  = "player.seek_forward_ms"
	PlayerSeekBackwardMs = "player.seek_backward_ms"
)

// Buffer Allocation - these keys bound the memory used while demuxing a progressive stream.
const (
	BufferSegmentSize  = "buffer.segment_size"
	BufferSegmentCount = "buffer.segment_count"
)

// Network Data Sources - these keys govern HTTP access to remote media.
const (
	NetworkUserAgent = "network.user_agent"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored = "cli.colored"
	CliTUI     = "cli.tui"
	// CliVersionCheck toggles the new release notice shown after help and version output.
	CliVersionCheck = "cli.version_check"
)
