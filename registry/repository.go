package registry

import (
	"context"
	"fmt"
	"net/http"

	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const defaultUserAgent = "vbf/1.0"

// RepositoryOption configures NewRepository.
type RepositoryOption func(*repositoryConfig)

type repositoryConfig struct {
	plainHTTP bool
	userAgent string
	store     credentials.Store
	storeErr  error
}

// WithPlainHTTP talks to the registry over HTTP instead of HTTPS.
func WithPlainHTTP(plain bool) RepositoryOption {
	return func(cfg *repositoryConfig) {
		cfg.plainHTTP = plain
	}
}

// WithUserAgent sets the User-Agent header sent to the registry.
func WithUserAgent(ua string) RepositoryOption {
	return func(cfg *repositoryConfig) {
		cfg.userAgent = ua
	}
}

// WithCredentialStore authenticates with credentials from store.
func WithCredentialStore(store credentials.Store) RepositoryOption {
	return func(cfg *repositoryConfig) {
		cfg.store = store
	}
}

// WithStaticCredentials authenticates with a fixed username and password.
// The host is taken from the repository reference.
func WithStaticCredentials(username, password string) RepositoryOption {
	return func(cfg *repositoryConfig) {
		cfg.store = &staticStore{cred: auth.Credential{Username: username, Password: password}}
	}
}

// WithDockerConfig authenticates with the docker config file and its
// credential helpers.
func WithDockerConfig() RepositoryOption {
	return func(cfg *repositoryConfig) {
		cfg.store, cfg.storeErr = DockerCredentialStore()
	}
}

// NewRepository returns a remote repository for ref ("host/name[:tag]").
//
// Requests go through a retrying HTTP client with a shared token cache.
// Without a credential option the repository is accessed anonymously.
func NewRepository(ref string, opts ...RepositoryOption) (*remote.Repository, error) {
	cfg := repositoryConfig{userAgent: defaultUserAgent}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.storeErr != nil {
		return nil, fmt.Errorf("load credentials: %w", cfg.storeErr)
	}

	repo, err := remote.NewRepository(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if s, ok := cfg.store.(*staticStore); ok && s.host == "" {
		s.host = repo.Reference.Registry
	}

	store := cfg.store
	repo.PlainHTTP = cfg.plainHTTP
	repo.Client = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if store == nil {
				return auth.EmptyCredential, nil
			}
			return store.Get(ctx, hostport)
		},
		Header: http.Header{
			"User-Agent": []string{cfg.userAgent},
		},
	}
	return repo, nil
}
