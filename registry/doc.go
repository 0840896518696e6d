// Package registry distributes VBF archives through OCI registries.
//
// An archive is stored as an OCI 1.1 artifact: a single layer holding the
// archive file verbatim, referenced by a manifest with artifact type
// ArtifactType. Push and Pull work against any oras.Target, so the same code
// serves remote registries (see NewRepository), OCI layouts on disk and the
// in-memory store used in tests.
//
//	repo, err := registry.NewRepository("ghcr.io/myorg/assets", registry.WithDockerConfig())
//	if err != nil {
//	    return err
//	}
//	desc, err := registry.Push(ctx, repo, "v1", "assets.vbf")
//	...
//	_, err = registry.Pull(ctx, repo, "v1", "assets.vbf")
package registry
