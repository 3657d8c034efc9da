package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cratedhq/crated/internal/cargo"
	"github.com/cratedhq/crated/internal/runtime"
)

// A scripted stage container for exercising plan execution without a
// containerd daemon. Zero values mean every operation succeeds.
type fakeContainer struct {
	id           string
	execs        []string                // Commands run, in order.
	exitCodes    map[string]int          // Exit code per command; zero when absent.
	copyToErr    error                   // Returned by CopyTo without reading the stream.
	copyFromDone chan struct{}           // Closed when CopyFrom returns, when non-nil.
	missing      map[string]bool         // Paths PathExists reports absent.
	stopped      bool
	destroyed    bool
	exports      []runtime.ProcessConfig // Process configs passed to Export.
}

func (f *fakeContainer) Exec(ctx context.Context, shell, command string, env []string, workdir string) (*runtime.ExecResult, error) {
	f.execs = append(f.execs, command)
	return &runtime.ExecResult{ExitCode: f.exitCodes[command]}, nil
}

func (f *fakeContainer) MkdirAll(ctx context.Context, path string) error {
	return nil
}

func (f *fakeContainer) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	if f.copyToErr != nil {
		return f.copyToErr
	}
	_, err := io.Copy(io.Discard, r)
	return err
}

func (f *fakeContainer) CopyFrom(ctx context.Context, w io.Writer, path string) error {
	defer func() {
		if f.copyFromDone != nil {
			close(f.copyFromDone)
		}
	}()
	_, err := w.Write([]byte("artifact bytes"))
	return err
}

func (f *fakeContainer) Rename(ctx context.Context, src, dest string) error {
	return nil
}

func (f *fakeContainer) PathExists(ctx context.Context, path string) (bool, error) {
	return !f.missing[path], nil
}

func (f *fakeContainer) Stop(ctx context.Context) error {
	f.stopped = true
	return nil
}

func (f *fakeContainer) Export(ctx context.Context, output string, proc runtime.ProcessConfig) error {
	f.exports = append(f.exports, proc)
	return nil
}

func (f *fakeContainer) Destroy(ctx context.Context) {
	f.destroyed = true
}

// Hands out scripted containers keyed by stage base image.
type fakeStarter struct {
	containers map[string]*fakeContainer
	started    []string // Sources started, in order.
}

func (s *fakeStarter) StartContainer(ctx context.Context, source, id, platform string) (stageContainer, error) {
	s.started = append(s.started, source)
	ctr := s.containers[source]
	ctr.id = id
	return ctr, nil
}

// Writes a minimal buildable project layout to a temp directory.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		cargo.ManifestFilename: planManifest,
		cargo.LockFilename:     planLock,
		filepath.Join(cargo.SourceDir, "main.rs"): "fn main() {}\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	return dir
}

func testPipeline(t *testing.T, plan *Plan, starter *fakeStarter) *pipeline {
	t.Helper()
	return &pipeline{
		rt:        starter,
		plan:      plan,
		resource:  "dalmatian",
		output:    t.TempDir(),
		context:   writeProject(t),
		platforms: []string{"linux/amd64"},
	}
}

func TestBuildBuilderFailureSkipsRuntimeStage(t *testing.T) {
	plan := NewPlan(loadPackage(t, planManifest, planLock), DefaultConfig())

	builder := &fakeContainer{exitCodes: map[string]int{"cargo build --release --locked": 101}}
	rtc := &fakeContainer{}
	starter := &fakeStarter{containers: map[string]*fakeContainer{
		plan.Stages[0].From: builder,
		plan.Stages[1].From: rtc,
	}}

	_, err := testPipeline(t, plan, starter).build(context.Background())
	if !errors.Is(err, ErrBuild) {
		t.Fatalf("err = %v, want ErrBuild", err)
	}
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("err = %v, want ErrCommandFailed", err)
	}

	if len(starter.started) != 1 || starter.started[0] != plan.Stages[0].From {
		t.Fatalf("started = %v, want only the builder image", starter.started)
	}
	if len(builder.exports) != 0 || len(rtc.exports) != 0 {
		t.Fatal("image exported despite builder failure")
	}
	if !builder.destroyed {
		t.Fatal("builder container not destroyed after failure")
	}
}

func TestBuildMissingArtifactSkipsRuntimeStage(t *testing.T) {
	plan := NewPlan(loadPackage(t, planManifest, planLock), DefaultConfig())

	builder := &fakeContainer{missing: map[string]bool{plan.Artifact: true}}
	rtc := &fakeContainer{}
	starter := &fakeStarter{containers: map[string]*fakeContainer{
		plan.Stages[0].From: builder,
		plan.Stages[1].From: rtc,
	}}

	_, err := testPipeline(t, plan, starter).build(context.Background())
	if !errors.Is(err, ErrAssemble) {
		t.Fatalf("err = %v, want ErrAssemble", err)
	}

	if len(starter.started) != 1 {
		t.Fatalf("started = %v, want only the builder image", starter.started)
	}
	if len(rtc.exports) != 0 {
		t.Fatal("image exported despite missing artifact")
	}
}

func TestBuildExportsRuntimeStage(t *testing.T) {
	plan := NewPlan(loadPackage(t, planManifest, planLock), DefaultConfig())

	builder := &fakeContainer{}
	rtc := &fakeContainer{}
	starter := &fakeStarter{containers: map[string]*fakeContainer{
		plan.Stages[0].From: builder,
		plan.Stages[1].From: rtc,
	}}

	p := testPipeline(t, plan, starter)
	result, err := p.build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.Binary != plan.Binary {
		t.Fatalf("result.Binary = %q, want %q", result.Binary, plan.Binary)
	}

	want := []string{plan.Stages[0].From, plan.Stages[1].From}
	if !reflect.DeepEqual(starter.started, want) {
		t.Fatalf("started = %v, want %v", starter.started, want)
	}

	if len(builder.exports) != 0 {
		t.Fatal("transient builder stage was exported")
	}
	if !rtc.stopped {
		t.Fatal("runtime stage not stopped before export")
	}
	if len(rtc.exports) != 1 {
		t.Fatalf("len(exports) = %d, want 1", len(rtc.exports))
	}
	if !reflect.DeepEqual(rtc.exports[0].Cmd, plan.Command) {
		t.Fatalf("exported Cmd = %v, want %v", rtc.exports[0].Cmd, plan.Command)
	}

	if !builder.destroyed || !rtc.destroyed {
		t.Fatal("stage containers not destroyed after build")
	}
}

func TestPlatformSlug(t *testing.T) {
	if got := platformSlug("linux/amd64"); got != "linux-amd64" {
		t.Fatalf("platformSlug = %q, want linux-amd64", got)
	}
	if got := platformSlug("linux/arm/v7"); got != "linux-arm-v7" {
		t.Fatalf("platformSlug = %q, want linux-arm-v7", got)
	}
}

func TestPlatformOutput(t *testing.T) {
	single := &pipeline{output: "dist", platforms: []string{"linux/amd64"}}
	if got := single.platformOutput("linux/amd64"); got != "dist" {
		t.Fatalf("single-platform output = %q, want dist", got)
	}

	multi := &pipeline{output: "dist", platforms: []string{"linux/amd64", "linux/arm64"}}
	if got := multi.platformOutput("linux/arm64"); got != "dist/linux-arm64" {
		t.Fatalf("multi-platform output = %q, want dist/linux-arm64", got)
	}
}

func TestContainerID(t *testing.T) {
	p := &pipeline{resource: "dalmatian"}

	if got := p.containerID("builder", 0, "linux/amd64"); got != "dalmatian-linux-amd64-stage-builder" {
		t.Fatalf("containerID = %q", got)
	}
	if got := p.containerID("", 1, "linux/amd64"); got != "dalmatian-linux-amd64-stage-2" {
		t.Fatalf("containerID = %q", got)
	}
}
