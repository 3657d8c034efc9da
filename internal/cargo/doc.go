// Package cargo models the build-time inputs of a Cargo package.
//
// A [Package] is loaded from a project directory containing Cargo.toml,
// Cargo.lock, and a src tree. The manifest declares the buildable unit's
// identity; the lock file records its pinned dependency set. Both are read
// once and treated as immutable for the duration of a build.
//
// Beyond parsing, the package derives the facts the pipeline needs: the name
// of the produced executable, the deterministic path the release build writes
// it to, and whether the dependency graph links against the OpenSSL runtime
// (which decides the runtime stage's library set).
package cargo
