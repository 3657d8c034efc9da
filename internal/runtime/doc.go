// Package runtime manages build containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon and resolves stage base
// images from either local OCI archives (imported, content-hash tagged,
// and unpacked) or registry references (pulled for the target platform).
// Containers are created with overlayfs snapshots and run a long-lived
// task so build steps can attach as exec processes.
//
// Each [Container] wraps a running containerd task. Commands execute
// inside the container, files move in and out as tar streams, and the
// final filesystem state can be committed and exported as an OCI archive
// with the image's startup action rewritten. Containers must be destroyed
// when no longer needed to release their snapshot and task resources.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "crated")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, "docker.io/library/debian:bookworm-slim", "runtime-1", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	result, err := ctr.Exec(ctx, "/bin/sh", "echo hello", nil, "")
//	if err != nil {
//	    return err
//	}
//
//	if err := ctr.Export(ctx, "output", runtime.ProcessConfig{Cmd: []string{"dalmatian"}}); err != nil {
//	    return err
//	}
package runtime
