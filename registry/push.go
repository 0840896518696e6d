package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/errdef"

	"github.com/meigma/vbf"
)

// Push uploads the archive at archivePath to target and tags it.
//
// The archive is opened first so that a corrupt file is never published. It
// is stored as a single layer of media type MediaTypeArchive, referenced from
// an OCI 1.1 manifest with artifact type ArtifactType. The returned
// descriptor is the manifest's.
func Push(ctx context.Context, target oras.Target, tag, archivePath string, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if tag == "" {
		return ocispec.Descriptor{}, errors.New("registry: tag is required")
	}

	a, err := vbf.Open(archivePath)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("validate archive: %w", err)
	}
	files, headerLen := a.Len(), a.HeaderLength()
	if err := a.Close(); err != nil {
		return ocispec.Descriptor{}, err
	}

	layer, err := pushArchive(ctx, target, archivePath)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	annotations := make(map[string]string, len(cfg.annotations)+2)
	for k, v := range cfg.annotations {
		annotations[k] = v
	}
	annotations[AnnotationFiles] = strconv.Itoa(files)
	annotations[AnnotationHeaderLength] = strconv.FormatUint(uint64(headerLen), 10)

	manifestDesc, err := oras.PackManifest(ctx, target, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ocispec.Descriptor{layer},
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", mapError(err))
	}

	for _, t := range append([]string{tag}, cfg.tags...) {
		if err := target.Tag(ctx, manifestDesc, t); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", t, mapError(err))
		}
	}

	cfg.log().Info("pushed archive",
		"tag", tag,
		"manifest", manifestDesc.Digest.String(),
		"layer", layer.Digest.String(),
		"size", layer.Size,
		"files", files)
	return manifestDesc, nil
}

// pushArchive uploads the archive file as a layer unless the target already
// has it.
func pushArchive(ctx context.Context, target oras.Target, path string) (ocispec.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	dgst, err := digest.Canonical.FromReader(f)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("digest archive: %w", err)
	}
	desc := ocispec.Descriptor{
		MediaType: MediaTypeArchive,
		Digest:    dgst,
		Size:      info.Size(),
		Annotations: map[string]string{
			ocispec.AnnotationTitle: filepath.Base(path),
		},
	}

	exists, err := target.Exists(ctx, desc)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("check layer: %w", mapError(err))
	}
	if exists {
		return desc, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return ocispec.Descriptor{}, err
	}
	if err := target.Push(ctx, desc, f); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return ocispec.Descriptor{}, fmt.Errorf("push layer: %w", mapError(err))
	}
	return desc, nil
}
