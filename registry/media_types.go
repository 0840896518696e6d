package registry

// Media types and annotations for VBF archives in OCI registries.
const (
	// ArtifactType identifies VBF archives as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.meigma.vbf.v1"

	// MediaTypeArchive is the media type of the layer holding the archive.
	MediaTypeArchive = "application/vnd.meigma.vbf.archive.v1"

	// AnnotationFiles records the number of entries in the archive.
	AnnotationFiles = "dev.meigma.vbf.files"

	// AnnotationHeaderLength records the archive's header length.
	AnnotationHeaderLength = "dev.meigma.vbf.header-length"
)

// maxManifestSize bounds manifest fetches.
const maxManifestSize = 4 << 20
