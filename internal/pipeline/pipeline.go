package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/cratedhq/crated/internal/inspect"
	"github.com/cratedhq/crated/internal/paths"
	"github.com/cratedhq/crated/internal/runtime"
)

// Controls plan execution.
type Options struct {
	Plan      *Plan    // Plan to execute.
	Project   string   // Project directory, root for resolving copy sources.
	Resource  string   // Resource name, used as a prefix for container IDs. Defaults to the binary name.
	Output    string   // Directory for the exported image.
	Platforms []string // Target platforms (e.g., ["linux/amd64"]). Defaults to host.
}

// Returned after successful plan execution.
type Result struct {
	Output string // Directory containing the exported image archive.
	Binary string // Path of the binary inside the image.
}

// Executes a plan against the container runtime.
//
// Stages run in declaration order; the builder stage must finish before the
// runtime stage starts, and any failure aborts the build before the runtime
// stage is reached. The non-transient stage is exported as the final image
// to the output directory.
func Run(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	if len(opts.Platforms) == 0 {
		opts.Platforms = []string{"linux/" + goruntime.GOARCH}
	}
	if opts.Resource == "" {
		opts.Resource = filepath.Base(opts.Plan.Binary)
	}

	slog.Info("executing build plan",
		"resource", opts.Resource,
		"output", opts.Output,
		"tls", opts.Plan.TLS,
		"platforms", opts.Platforms,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	p := &pipeline{
		rt:        runtimeStarter{rt: rt},
		plan:      opts.Plan,
		resource:  opts.Resource,
		output:    opts.Output,
		context:   opts.Project,
		platforms: opts.Platforms,
	}

	return p.build(ctx)
}

// Holds shared state for executing all stages of a plan.
type pipeline struct {
	rt         containerStarter // Container runtime for image and container operations.
	plan       *Plan            // Plan being executed.
	resource   string           // Resource name, used as a prefix for container IDs.
	output     string           // Output directory for the final image archive.
	context    string           // Project directory, root for resolving copy sources.
	platforms  []string         // Target platforms to build for.
	containers []stageContainer // All stage containers across all platforms, destroyed after the build completes.
}

// Executes the plan end-to-end against the container runtime.
//
// Each target platform is built independently. All stage containers are
// destroyed when the build completes, whether it succeeded or not.
func (p *pipeline) build(ctx context.Context) (*Result, error) {
	defer p.destroyContainers(ctx)

	for _, platform := range p.platforms {
		if err := p.buildPlatform(ctx, platform); err != nil {
			return nil, err
		}
	}

	return &Result{Output: p.output, Binary: p.plan.Binary}, nil
}

// Executes all stages of the plan for a single platform.
//
// Each platform maintains its own set of named stage containers for
// cross-stage copy lookups. The output is written to a platform-specific
// subdirectory when building for multiple platforms.
func (p *pipeline) buildPlatform(ctx context.Context, platform string) error {
	slog.Info("building platform", "platform", platform)

	output := p.platformOutput(platform)
	if err := os.MkdirAll(output, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	stages := make(map[string]stageContainer)

	for i, stage := range p.plan.Stages {
		if err := p.buildStage(ctx, stage, i, platform, output, stages); err != nil {
			return fmt.Errorf("%w: platform %s, stage %q: %w", ErrBuild, platform, stage.Name, err)
		}
	}

	return nil
}

// Executes a single stage of the plan for a specific platform.
//
// Resolves the stage's base image, starts a build container, and executes
// the stage's steps. Transient stages end with an artifact check so a
// builder that silently produced nothing fails here rather than as an
// opaque copy error in the next stage. The non-transient stage is stopped,
// committed, and exported with the plan's startup action.
func (p *pipeline) buildStage(ctx context.Context, stage Stage, index int, platform, output string, stages map[string]stageContainer) error {
	slog.Info(fmt.Sprintf("building stage %q", stage.Name), "platform", platform, "from", stage.From)

	id := p.containerID(stage.Name, index, platform)
	ctr, err := p.rt.StartContainer(ctx, stage.From, id, platform)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	p.containers = append(p.containers, ctr)
	if stage.Name != "" {
		stages[stage.Name] = ctr
	}

	if err := executeSteps(ctx, ctr, stage.Steps, newStepState(), p.context, stages); err != nil {
		return err
	}

	if stage.Transient {
		return p.checkArtifact(ctx, ctr)
	}

	if err := ctr.Stop(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	proc := runtime.ProcessConfig{Cmd: p.plan.Command}
	if err := ctr.Export(ctx, output, proc); err != nil {
		return fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	auditExport(filepath.Join(output, runtime.ExportFilename))

	return nil
}

// Audits the exported archive and reports violations without failing the
// build. The exported image should already satisfy both invariants; a
// violation here means the runtime stage was contaminated and warrants
// attention, not a rebuild loop.
func auditExport(path string) {
	report, err := inspect.Inspect(path)
	if err != nil {
		slog.Warn("post-build audit failed", "archive", path, "error", err)
		return
	}
	for _, v := range report.Violations {
		slog.Warn("post-build audit violation", "archive", path, "violation", v)
	}
}

// Confirms the builder produced its artifact at the deterministic path.
func (p *pipeline) checkArtifact(ctx context.Context, ctr stageContainer) error {
	ok, err := ctr.PathExists(ctx, p.plan.Artifact)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: artifact %s not found in builder stage", ErrAssemble, p.plan.Artifact)
	}
	return nil
}

// Destroys all stage containers.
func (p *pipeline) destroyContainers(ctx context.Context) {
	for _, ctr := range p.containers {
		ctr.Destroy(ctx)
	}
}

// Returns a unique container ID for a stage, scoped to this resource and
// platform.
func (p *pipeline) containerID(name string, index int, platform string) string {
	slug := platformSlug(platform)
	if name != "" {
		return fmt.Sprintf("%s-%s-stage-%s", p.resource, slug, name)
	}
	return fmt.Sprintf("%s-%s-stage-%d", p.resource, slug, index+1)
}

// Returns the output directory for a specific platform.
//
// When building for a single platform, the output directory is left as-is
// to preserve the {output}/image.tar convention. For multi-platform builds,
// each platform gets a subdirectory (e.g., {output}/linux-amd64).
func (p *pipeline) platformOutput(platform string) string {
	if len(p.platforms) == 1 {
		return p.output
	}
	return filepath.Join(p.output, platformSlug(platform))
}

// Converts a platform string to a filesystem-safe slug.
//
// Replaces slashes with dashes (e.g., "linux/amd64" becomes "linux-amd64").
func platformSlug(platform string) string {
	return strings.ReplaceAll(platform, "/", "-")
}
