package protocol

// Asks the daemon to run the two-stage pipeline for a Cargo project.
type BuildRequest struct {
	Project   string   `json:"project"`             // Directory containing Cargo.toml, Cargo.lock, and src.
	Output    string   `json:"output,omitempty"`    // Directory for the exported archive. Empty uses the default builds dir.
	Config    string   `json:"config,omitempty"`    // Path to a crated.yaml build config. Empty uses defaults.
	Platforms []string `json:"platforms,omitempty"` // Target platforms. Empty builds for the host.
}

// Reports a completed build.
type BuildResult struct {
	Output string `json:"output"` // Directory containing the exported archive.
	Binary string `json:"binary"` // Path of the binary inside the image.
}

// Asks the daemon to audit an exported image archive.
type InspectRequest struct {
	Archive string `json:"archive"` // Path to the image archive.
}

// Reports the result of an image audit.
type InspectResult struct {
	StartupAction []string `json:"startup_action"`       // Effective entrypoint plus command of the image.
	Violations    []string `json:"violations,omitempty"` // Invariant violations, empty when the image is clean.
}

// Asks the daemon to push an exported archive to a registry.
type PushRequest struct {
	Archive   string `json:"archive"`              // Path to the image archive.
	Reference string `json:"reference"`            // Registry reference (e.g., "registry.example.com/app:1.0").
	PlainHTTP bool   `json:"plain_http,omitempty"` // Use HTTP instead of HTTPS (local registries).
	Username  string `json:"username,omitempty"`   // Registry credentials. Empty uses the ambient chain.
	Password  string `json:"password,omitempty"`
}

// Reports a completed push.
type PushResult struct {
	Reference string `json:"reference"` // Reference the archive was pushed to.
	Digest    string `json:"digest"`    // Digest of the pushed manifest.
}

// Reports daemon status.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Builds  int    `json:"builds"`
}

// Carries an error message in an error response.
type ErrorResult struct {
	Message string `json:"message"`
}
