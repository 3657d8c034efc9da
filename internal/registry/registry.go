package registry

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/oci"
	orasregistry "oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// Tag applied when the reference carries none.
const DefaultTag = "latest"

var (
	ErrPush      = errors.New("image push failed")
	ErrReference = errors.New("invalid image reference")
	ErrArchive   = errors.New("invalid image archive")
)

// Options for pushing an archive.
type Options struct {
	// Archive is the path of the exported OCI layout tar.
	Archive string

	// Reference is the destination, e.g. registry.example.com/dalmatian:1.2.0.
	// A missing tag defaults to DefaultTag.
	Reference string

	// PlainHTTP disables TLS for the registry connection. Meant for local
	// registries during development.
	PlainHTTP bool

	// Username and Password override the ambient credential chain when set.
	Username string
	Password string
}

// Result of a completed push.
type Result struct {
	Reference string
	Digest    string
}

// Pushes the image in the archive to the remote repository.
//
// The archive is used as the copy source directly; blobs stream from the
// tar to the registry without unpacking.
func Push(ctx context.Context, opts Options) (*Result, error) {
	repoPath, tag, err := parseReference(opts.Reference)
	if err != nil {
		return nil, err
	}

	root, err := archiveRoot(opts.Archive)
	if err != nil {
		return nil, err
	}

	store, err := oci.NewFromTar(ctx, opts.Archive)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	repo, err := remote.NewRepository(repoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReference, err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = authClient(repo.Reference.Registry, opts)

	desc, err := oras.Copy(ctx, store, root.Digest.String(), repo, tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPush, err)
	}

	return &Result{
		Reference: repoPath + ":" + tag,
		Digest:    desc.Digest.String(),
	}, nil
}

// Builds the registry HTTP client, preferring explicit credentials over the
// ambient chain.
func authClient(registry string, opts Options) *auth.Client {
	client := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
	}

	if opts.Username != "" {
		client.Credential = auth.StaticCredential(registry, auth.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}

	return client
}

// Splits a reference into repository path and tag, defaulting the tag.
func parseReference(reference string) (string, string, error) {
	ref, err := orasregistry.ParseReference(reference)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %w", ErrReference, reference, err)
	}

	tag := ref.Reference
	if tag == "" {
		tag = DefaultTag
	} else if strings.HasPrefix(tag, "sha256:") {
		return "", "", fmt.Errorf("%w: %q: digest references cannot be pushed", ErrReference, reference)
	}

	return ref.Registry + "/" + ref.Repository, tag, nil
}

// Reads the root manifest descriptor from the archive's index.
func archiveRoot(path string) (ocispec.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("%w: %w", ErrArchive, err)
		}

		if strings.TrimPrefix(hdr.Name, "./") != "index.json" {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("%w: %w", ErrArchive, err)
		}

		var index ocispec.Index
		if err := json.Unmarshal(data, &index); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("%w: %w", ErrArchive, err)
		}
		if len(index.Manifests) == 0 {
			return ocispec.Descriptor{}, fmt.Errorf("%w: archive contains no image", ErrArchive)
		}
		return index.Manifests[0], nil
	}

	return ocispec.Descriptor{}, fmt.Errorf("%w: missing index.json", ErrArchive)
}
