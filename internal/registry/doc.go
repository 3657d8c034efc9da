// Package registry pushes exported image archives to OCI registries.
//
// The pipeline writes OCI layout archives; this package opens one as a
// read-only content store and copies the image graph to a remote
// repository, so a build can be published without a local container
// engine or an intermediate import.
package registry
