package inspect

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Options for the synthetic archives built by writeArchive.
type archiveSpec struct {
	entrypoint []string
	cmd        []string
	layerFiles []string
	gzipLayer  bool
	nested     bool // Wrap the manifest in a per-platform index.
}

func TestInspectCleanImage(t *testing.T) {
	path := writeArchive(t, archiveSpec{
		cmd:        []string{"dalmatian"},
		layerFiles: []string{"usr/local/bin/dalmatian", "etc/ssl/certs/ca-certificates.crt"},
	})

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if !report.Clean() {
		t.Fatalf("violations = %v, want none", report.Violations)
	}
	if len(report.StartupAction) != 1 || report.StartupAction[0] != "dalmatian" {
		t.Fatalf("StartupAction = %v, want [dalmatian]", report.StartupAction)
	}
}

func TestInspectStartupActionWithArguments(t *testing.T) {
	path := writeArchive(t, archiveSpec{
		cmd:        []string{"dalmatian", "--serve"},
		layerFiles: []string{"usr/local/bin/dalmatian"},
	})

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if report.Clean() {
		t.Fatal("startup action with arguments must be flagged")
	}
}

func TestInspectEntrypointAndCmdCombined(t *testing.T) {
	// The effective action is entrypoint plus cmd; one token in each is
	// still two arguments at container start.
	path := writeArchive(t, archiveSpec{
		entrypoint: []string{"/usr/local/bin/dalmatian"},
		cmd:        []string{"serve"},
		layerFiles: []string{"usr/local/bin/dalmatian"},
	})

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if report.Clean() {
		t.Fatal("combined entrypoint and cmd must be flagged")
	}
}

func TestInspectToolchainLeak(t *testing.T) {
	path := writeArchive(t, archiveSpec{
		cmd: []string{"dalmatian"},
		layerFiles: []string{
			"usr/local/bin/dalmatian",
			"usr/local/cargo/bin/cargo",
			"usr/bin/rustc",
		},
	})

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(report.Violations) != 2 {
		t.Fatalf("violations = %v, want two toolchain findings", report.Violations)
	}
}

func TestInspectToolchainPrefixIsComponentwise(t *testing.T) {
	path := writeArchive(t, archiveSpec{
		cmd:        []string{"dalmatian"},
		layerFiles: []string{"usr/bin/ccache", "usr/local/cargohold/manifest"},
	})

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("violations = %v, want none for near-miss names", report.Violations)
	}
}

func TestInspectGzippedLayer(t *testing.T) {
	path := writeArchive(t, archiveSpec{
		cmd:        []string{"dalmatian"},
		layerFiles: []string{"usr/bin/cargo"},
		gzipLayer:  true,
	})

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if report.Clean() {
		t.Fatal("toolchain in gzipped layer must be flagged")
	}
}

func TestInspectNestedIndex(t *testing.T) {
	path := writeArchive(t, archiveSpec{
		cmd:        []string{"dalmatian"},
		layerFiles: []string{"usr/local/bin/dalmatian"},
		nested:     true,
	})

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("violations = %v, want none", report.Violations)
	}
}

func TestInspectMissingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.tar")
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	writeEntry(t, tw, "oci-layout", []byte(`{"imageLayoutVersion":"1.0.0"}`))
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Inspect(path)
	if !errors.Is(err, ErrArchive) {
		t.Fatalf("err = %v, want ErrArchive", err)
	}
}

func TestInspectEmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tar")
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	writeEntry(t, tw, "index.json", mustJSON(t, ocispec.Index{}))
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Inspect(path)
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

// Builds an OCI layout archive with one image and one layer.
func writeArchive(t *testing.T, spec archiveSpec) string {
	t.Helper()

	layer, layerMedia := buildLayer(t, spec.layerFiles, spec.gzipLayer)

	config := mustJSON(t, ocispec.Image{
		Config: ocispec.ImageConfig{
			Entrypoint: spec.entrypoint,
			Cmd:        spec.cmd,
		},
	})

	manifest := mustJSON(t, ocispec.Manifest{
		MediaType: ocispec.MediaTypeImageManifest,
		Config: ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageConfig,
			Digest:    digest.FromBytes(config),
			Size:      int64(len(config)),
		},
		Layers: []ocispec.Descriptor{{
			MediaType: layerMedia,
			Digest:    digest.FromBytes(layer),
			Size:      int64(len(layer)),
		}},
	})

	manifestDesc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(manifest),
		Size:      int64(len(manifest)),
	}

	blobs := map[digest.Digest][]byte{
		digest.FromBytes(config):   config,
		digest.FromBytes(layer):    layer,
		digest.FromBytes(manifest): manifest,
	}

	top := manifestDesc
	if spec.nested {
		nested := mustJSON(t, ocispec.Index{
			MediaType: ocispec.MediaTypeImageIndex,
			Manifests: []ocispec.Descriptor{manifestDesc},
		})
		blobs[digest.FromBytes(nested)] = nested
		top = ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageIndex,
			Digest:    digest.FromBytes(nested),
			Size:      int64(len(nested)),
		}
	}

	index := mustJSON(t, ocispec.Index{
		MediaType: ocispec.MediaTypeImageIndex,
		Manifests: []ocispec.Descriptor{top},
	})

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	writeEntry(t, tw, "index.json", index)
	for dgst, data := range blobs {
		writeEntry(t, tw, "blobs/"+dgst.Algorithm().String()+"/"+dgst.Encoded(), data)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "image.tar")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Builds a layer tar containing empty files at the given paths.
func buildLayer(t *testing.T, files []string, gzipped bool) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range files {
		writeEntry(t, tw, name, []byte("x"))
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	if !gzipped {
		return buf.Bytes(), ocispec.MediaTypeImageLayer
	}

	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	if _, err := gz.Write(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return gzBuf.Bytes(), ocispec.MediaTypeImageLayerGzip
}

func writeEntry(t *testing.T, tw *tar.Writer, name string, data []byte) {
	t.Helper()
	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(data))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatal(err)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
