package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cratedhq/crated/internal/cargo"
	"github.com/cratedhq/crated/internal/paths"
	"github.com/cratedhq/crated/internal/pipeline"
	"github.com/cratedhq/crated/internal/runtime"
)

// Represents the 'crated build' command.
type BuildCmd struct {
	Project string `arg:"" optional:"" default:"." help:"Cargo project directory." type:"path"`

	Output    string   `short:"o" help:"Directory for the exported archive. Defaults to the builds directory." placeholder:"DIR"`
	Config    string   `short:"c" help:"Build config file. Defaults to crated.yaml in the project." placeholder:"PATH"`
	Platforms []string `short:"p" name:"platform" help:"Target platform (repeatable, e.g. linux/amd64). Defaults to the host."`

	ContainerdAddress   string `help:"Containerd socket address." default:"${containerd_address}" placeholder:"PATH"`
	ContainerdNamespace string `help:"Containerd namespace for images and containers." default:"${containerd_namespace}"`
}

// Executes the build command.
//
// Runs the two-stage pipeline in-process: the builder stage compiles the
// release binary, the runtime stage receives the artifact, and the result
// is exported as an OCI archive. No daemon is required.
func (c *BuildCmd) Run(ctx context.Context) error {
	pkg, err := cargo.Load(c.Project)
	if err != nil {
		return err
	}

	cfg, err := c.config()
	if err != nil {
		return err
	}

	output := c.Output
	if output == "" {
		output = filepath.Join(paths.Builds(), pkg.Name)
	}

	rt, err := runtime.New(c.ContainerdAddress, c.ContainerdNamespace)
	if err != nil {
		return err
	}
	defer rt.Close()

	plan := pipeline.NewPlan(pkg, cfg)
	slog.Info("building project", "package", pkg.Name, "version", pkg.Version, "tls", plan.TLS)

	result, err := pipeline.Run(ctx, rt, pipeline.Options{
		Plan:      plan,
		Project:   c.Project,
		Resource:  pkg.Name,
		Output:    output,
		Platforms: c.Platforms,
	})
	if err != nil {
		return err
	}

	slog.Info("build complete", "binary", result.Binary)
	fmt.Println(result.Output)
	return nil
}

func (c *BuildCmd) config() (pipeline.Config, error) {
	if c.Config != "" {
		return pipeline.LoadConfig(c.Config)
	}
	return pipeline.ProjectConfig(c.Project)
}
