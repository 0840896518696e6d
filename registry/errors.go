package registry

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote/errcode"
)

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when nothing exists at the reference.
	ErrNotFound = errors.New("registry: not found")

	// ErrInvalidReference is returned when a repository reference cannot be parsed.
	ErrInvalidReference = errors.New("registry: invalid reference")

	// ErrInvalidManifest is returned when a manifest is not a VBF artifact
	// manifest.
	ErrInvalidManifest = errors.New("registry: invalid vbf manifest")

	// ErrMissingArchive is returned when the manifest has no archive layer.
	ErrMissingArchive = errors.New("registry: missing archive layer")

	// ErrDigestMismatch is returned when content does not match its expected digest.
	ErrDigestMismatch = errors.New("registry: digest mismatch")

	// ErrTooLarge is returned when the archive layer exceeds the configured limit.
	ErrTooLarge = errors.New("registry: archive too large")

	// ErrUnauthorized is returned when the registry rejects the credentials.
	ErrUnauthorized = errors.New("registry: unauthorized")

	// ErrForbidden is returned when the credentials lack access to the repository.
	ErrForbidden = errors.New("registry: forbidden")
)

// mapError translates oras errors into registry sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, errdef.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, content.ErrMismatchedDigest),
		errors.Is(err, content.ErrTrailingData),
		errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %v", ErrDigestMismatch, err)
	}
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		switch errResp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	return err
}
