package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"

	"github.com/meigma/vbf"
)

// Pull downloads the archive referenced by ref from target into destPath.
//
// The layer is streamed through a digest-verifying reader into a temporary
// file next to destPath, which is renamed into place only after the digest
// matches and, unless disabled with PullWithValidate, the archive header
// checks out. destPath is left untouched on failure. The returned descriptor
// is the archive layer's.
func Pull(ctx context.Context, target oras.ReadOnlyTarget, ref, destPath string, opts ...PullOption) (ocispec.Descriptor, error) {
	cfg := pullConfig{validate: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.log().Info("pulling archive", "ref", ref)

	manifest, err := FetchManifest(ctx, target, ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	layer, err := archiveLayer(manifest)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if cfg.maxSize > 0 && layer.Size > cfg.maxSize {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrTooLarge, layer.Size, cfg.maxSize)
	}

	if err := download(ctx, target, layer, destPath, &cfg); err != nil {
		return ocispec.Descriptor{}, err
	}

	cfg.log().Info("pulled archive",
		"ref", ref,
		"layer", layer.Digest.String(),
		"size", layer.Size,
		"path", destPath)
	return layer, nil
}

// FetchManifest resolves ref and returns its manifest after checking that it
// describes a VBF artifact.
func FetchManifest(ctx context.Context, target oras.ReadOnlyTarget, ref string) (*ocispec.Manifest, error) {
	desc, err := target.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, mapError(err))
	}
	if desc.MediaType != ocispec.MediaTypeImageManifest {
		return nil, fmt.Errorf("%w: unexpected media type %q", ErrInvalidManifest, desc.MediaType)
	}
	if desc.Size > maxManifestSize {
		return nil, fmt.Errorf("%w: manifest size %d exceeds limit", ErrInvalidManifest, desc.Size)
	}

	data, err := content.FetchAll(ctx, target, desc)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", mapError(err))
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if manifest.ArtifactType != ArtifactType {
		return nil, fmt.Errorf("%w: unexpected artifact type %q", ErrInvalidManifest, manifest.ArtifactType)
	}
	return &manifest, nil
}

func archiveLayer(manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	for _, layer := range manifest.Layers {
		if layer.MediaType == MediaTypeArchive {
			return layer, nil
		}
	}
	return ocispec.Descriptor{}, ErrMissingArchive
}

func download(ctx context.Context, target oras.ReadOnlyTarget, layer ocispec.Descriptor, destPath string, cfg *pullConfig) (err error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".vbf-pull-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	rc, err := target.Fetch(ctx, layer)
	if err != nil {
		return fmt.Errorf("fetch layer: %w", mapError(err))
	}
	defer rc.Close()

	vr := content.NewVerifyReader(rc, layer)
	if _, err = io.Copy(tmp, vr); err != nil {
		return fmt.Errorf("download layer: %w", mapError(err))
	}
	if err = vr.Verify(); err != nil {
		return fmt.Errorf("verify layer: %w", mapError(err))
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	if cfg.validate {
		a, openErr := vbf.Open(tmpPath)
		if openErr != nil {
			err = fmt.Errorf("validate archive: %w", openErr)
			return err
		}
		cfg.log().Debug("validated archive", "files", a.Len())
		a.Close()
	}

	if err = os.Rename(tmpPath, destPath); err != nil {
		return err
	}
	return nil
}
