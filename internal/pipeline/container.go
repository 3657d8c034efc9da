package pipeline

import (
	"context"
	"io"

	"github.com/cratedhq/crated/internal/runtime"
)

// Operations the pipeline performs on a stage container. Satisfied by
// [runtime.Container]; tests substitute scripted implementations.
type stageContainer interface {
	Exec(ctx context.Context, shell, command string, env []string, workdir string) (*runtime.ExecResult, error)
	MkdirAll(ctx context.Context, path string) error
	CopyTo(ctx context.Context, r io.Reader, destDir string) error
	CopyFrom(ctx context.Context, w io.Writer, path string) error
	Rename(ctx context.Context, src, dest string) error
	PathExists(ctx context.Context, path string) (bool, error)
	Stop(ctx context.Context) error
	Export(ctx context.Context, output string, proc runtime.ProcessConfig) error
	Destroy(ctx context.Context)
}

var _ stageContainer = (*runtime.Container)(nil)

// Starts stage containers from resolved base image sources.
type containerStarter interface {
	StartContainer(ctx context.Context, source, id, platform string) (stageContainer, error)
}

// Adapts [runtime.Runtime] to the starter interface.
type runtimeStarter struct {
	rt *runtime.Runtime
}

func (s runtimeStarter) StartContainer(ctx context.Context, source, id, platform string) (stageContainer, error) {
	ctr, err := s.rt.StartContainer(ctx, source, id, platform)
	if err != nil {
		return nil, err
	}
	return ctr, nil
}
