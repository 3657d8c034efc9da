package inspect

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/containerd/containerd/v2/core/images"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

var (
	ErrArchive = errors.New("invalid image archive")
	ErrNoImage = errors.New("archive contains no image")
)

// Rootfs paths that indicate build tooling leaked into the image. Paths are
// matched as whole components, so usr/bin/cc does not match usr/bin/ccache.
// The OS package manager of the base image is deliberately not listed; the
// separation invariant concerns the build toolchain, which the runtime
// stage must never see.
var toolchainPaths = []string{
	"usr/local/cargo",
	"usr/local/rustup",
	"usr/bin/cargo",
	"usr/bin/rustc",
	"usr/bin/rustup",
	"root/.cargo",
	"root/.rustup",
	"usr/bin/cc",
	"usr/bin/gcc",
}

// Size cap for metadata blobs read into memory during the first pass.
// Manifests and configs are a few KB; layers are skipped by this cap and
// streamed in the second pass.
const maxMetadataBlob = 4 << 20

// Result of auditing an exported image archive.
type Report struct {
	StartupAction []string // Effective entrypoint plus command.
	Violations    []string // Invariant violations found, empty when clean.
}

// Reports whether the image satisfies both invariants.
func (r *Report) Clean() bool {
	return len(r.Violations) == 0
}

// Audits the image archive at the given path.
//
// The archive is read twice: a first pass collects the index, manifest, and
// config, then a second pass streams each layer checking for toolchain
// paths. The archive is never unpacked to disk.
func Inspect(path string) (*Report, error) {
	manifest, config, err := readImage(path)
	if err != nil {
		return nil, err
	}

	report := &Report{
		StartupAction: append(append([]string{}, config.Config.Entrypoint...), config.Config.Cmd...),
	}

	if len(report.StartupAction) != 1 {
		report.Violations = append(report.Violations, fmt.Sprintf(
			"startup action %v invokes %d arguments, want exactly one executable path",
			report.StartupAction, len(report.StartupAction)))
	}

	if err := auditLayers(path, manifest, report); err != nil {
		return nil, err
	}

	return report, nil
}

// Reads the archive's manifest and image config.
//
// The archive is an OCI layout tar: index.json at the root and content
// blobs under blobs/<algorithm>/<hex>. The index may point at a nested
// per-platform index; the first manifest wins, matching the single-platform
// archives the pipeline exports.
func readImage(path string) (*ocispec.Manifest, *ocispec.Image, error) {
	blobs, index, err := readMetadata(path)
	if err != nil {
		return nil, nil, err
	}

	if len(index.Manifests) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoImage, path)
	}

	desc := index.Manifests[0]
	if images.IsIndexType(desc.MediaType) {
		var nested ocispec.Index
		if err := unmarshalBlob(blobs, desc, &nested); err != nil {
			return nil, nil, err
		}
		if len(nested.Manifests) == 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoImage, path)
		}
		desc = nested.Manifests[0]
	}

	var manifest ocispec.Manifest
	if err := unmarshalBlob(blobs, desc, &manifest); err != nil {
		return nil, nil, err
	}

	var config ocispec.Image
	if err := unmarshalBlob(blobs, manifest.Config, &config); err != nil {
		return nil, nil, err
	}

	return &manifest, &config, nil
}

// Collects the index and all metadata-sized blobs from the archive.
func readMetadata(path string) (map[string][]byte, *ocispec.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	defer f.Close()

	blobs := make(map[string][]byte)
	var index *ocispec.Index

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrArchive, err)
		}

		name := normalizeName(hdr.Name)
		switch {
		case name == "index.json":
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrArchive, err)
			}
			index = &ocispec.Index{}
			if err := json.Unmarshal(data, index); err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrArchive, err)
			}

		case strings.HasPrefix(name, "blobs/") && hdr.Size <= maxMetadataBlob:
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrArchive, err)
			}
			blobs[name] = data
		}
	}

	if index == nil {
		return nil, nil, fmt.Errorf("%w: missing index.json", ErrArchive)
	}

	return blobs, index, nil
}

// Streams each layer of the manifest and records toolchain paths.
func auditLayers(path string, manifest *ocispec.Manifest, report *Report) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchive, err)
	}
	defer f.Close()

	layers := make(map[string]ocispec.Descriptor, len(manifest.Layers))
	for _, layer := range manifest.Layers {
		layers[blobName(layer)] = layer
	}

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrArchive, err)
		}

		desc, ok := layers[normalizeName(hdr.Name)]
		if !ok {
			continue
		}

		if err := auditLayer(tr, desc, report); err != nil {
			return err
		}
	}

	return nil
}

// Walks a single layer tar, flagging entries under toolchain paths.
func auditLayer(r io.Reader, desc ocispec.Descriptor, report *Report) error {
	if strings.HasSuffix(desc.MediaType, "+gzip") || strings.HasSuffix(desc.MediaType, ".gzip") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("%w: layer %s: %w", ErrArchive, desc.Digest, err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: layer %s: %w", ErrArchive, desc.Digest, err)
		}

		name := normalizeName(hdr.Name)
		for _, p := range toolchainPaths {
			if name == p || strings.HasPrefix(name, p+"/") {
				report.Violations = append(report.Violations, fmt.Sprintf(
					"layer %s contains build tooling: /%s", desc.Digest, name))
				break
			}
		}
	}
}

// Decodes a metadata blob referenced by a descriptor.
func unmarshalBlob(blobs map[string][]byte, desc ocispec.Descriptor, v any) error {
	data, ok := blobs[blobName(desc)]
	if !ok {
		return fmt.Errorf("%w: missing blob %s", ErrArchive, desc.Digest)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: blob %s: %w", ErrArchive, desc.Digest, err)
	}
	return nil
}

// Returns the archive entry name for a descriptor's blob.
func blobName(desc ocispec.Descriptor) string {
	return "blobs/" + desc.Digest.Algorithm().String() + "/" + desc.Digest.Encoded()
}

// Strips leading "./" and "/" from a tar entry name.
func normalizeName(name string) string {
	name = strings.TrimPrefix(name, "./")
	return strings.TrimPrefix(name, "/")
}
