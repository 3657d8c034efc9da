package pipeline

// A single stage of a build plan, backed by a container created from a base
// image.
//
// Transient stages exist only to produce intermediate artifacts; they are
// never exported and their filesystems are discarded with their containers.
// The final non-transient stage becomes the output image.
type Stage struct {
	Name      string // Stage name, referenced by cross-stage copies.
	From      string // Base image: registry reference or local OCI archive path.
	Transient bool   // Whether the stage is discarded instead of exported.
	Steps     []Step // Ordered steps executed inside the stage container.
}

// A single step within a stage.
//
// A step is either an operation (Run or Copy), a group of nested steps, or a
// standalone modifier. Modifier fields on an operation step scope to that
// operation only; standalone modifiers persist for the rest of the stage.
type Step struct {
	Run     string            // Shell command to execute.
	Copy    string            // Copy spec: "src dest" or "stage:src dest".
	Shell   string            // Shell override for run steps.
	Workdir string            // Working directory.
	Env     map[string]string // Environment variables.
	Steps   []Step            // Nested steps sharing this step's modifiers.
}
