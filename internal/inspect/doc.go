// Package inspect audits exported image archives.
//
// The two-stage pipeline promises that build tooling never reaches the
// output image and that the image's sole declared startup action executes
// one binary with no arguments. Inspect opens an exported OCI archive and
// checks both promises directly against the image config and the layer
// contents, without a container runtime.
//
// A missing runtime shared library cannot be caught here: that failure is
// only observable when the container starts. What can be caught is the
// opposite leak, a toolchain that made it into the runtime stage.
package inspect
