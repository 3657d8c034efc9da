// Parses flags and dispatches the crated commands.
//
// The CLI accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-s, --socket    Unix socket path.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level before the selected
// command runs.
//
// Build, inspect, and push run in-process against containerd and the local
// filesystem. Status and stop talk to a running daemon over its socket.
package cli
