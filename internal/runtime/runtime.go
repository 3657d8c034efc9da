package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	goruntime "runtime"

	containerd "github.com/containerd/containerd/v2/client"
)

const (

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges (no mount(2)),
	// allowing crated to run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Manages the containerd client and provides image and container operations.
type Runtime struct {
	client *containerd.Client // Containerd client for managing containers and images.
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant. The
// runtime must be closed when no longer needed.
func New(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return &Runtime{client: client}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Resolves a stage source and starts a build container from it.
//
// The source is either a path to a local OCI archive or a registry
// reference; paths that exist on disk are imported, anything else is pulled.
// The image layers for the target platform are unpacked into the
// snapshotter, a container is created with a fresh snapshot, and a
// long-running task (sleep infinity) is started so that subsequent Exec
// calls have a running process to attach to. Any existing container with
// the same ID is removed before the new one is created. Building for a
// platform other than the host requires QEMU / binfmt_misc support in the
// kernel.
func (rt *Runtime) StartContainer(ctx context.Context, source, id, platform string) (*Container, error) {
	if platform == "" {
		platform = defaultPlatform()
	}

	image, err := rt.resolveSource(ctx, source, platform)
	if err != nil {
		return nil, err
	}

	c := &Container{
		client:   rt.client,
		id:       id,
		platform: platform,
	}

	// Remove any stale container from a previous build with the same ID.
	c.remove(ctx)

	ctr, err := c.create(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("container started", "id", id, "source", source)

	return c, nil
}

// Resolves a stage source to an unpacked, platform-specific image.
//
// A source naming an existing file is treated as a local OCI archive; any
// other source is treated as a registry reference. A source that is neither
// readable on disk nor resolvable against a registry fails image assembly.
func (rt *Runtime) resolveSource(ctx context.Context, source, platform string) (containerd.Image, error) {
	if _, err := os.Stat(source); err == nil {
		return rt.importAndUnpack(ctx, source, platform)
	}
	return rt.pullImage(ctx, source, platform)
}

// Returns the default OCI platform for the host architecture.
func defaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}
