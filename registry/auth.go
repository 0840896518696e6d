package registry

import (
	"context"
	"errors"
	"strings"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

var errReadOnlyStore = errors.New("registry: static credential store is read-only")

// DockerCredentialStore returns a credential store backed by the docker
// config file (~/.docker/config.json) and its credential helpers.
//
// Docker Hub is registered under several hostnames, so lookups for any of
// them fall back to the others.
func DockerCredentialStore() (credentials.Store, error) {
	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		return nil, err
	}
	return &hubFallbackStore{Store: store}, nil
}

// StaticCredentials returns a read-only store holding one credential for
// host. A username of "" with a non-empty password is treated as a bearer
// token.
func StaticCredentials(host, username, password string) credentials.Store {
	cred := auth.Credential{Username: username, Password: password}
	if username == "" {
		cred = auth.Credential{AccessToken: password}
	}
	return &staticStore{host: serverHost(host), cred: cred}
}

type staticStore struct {
	host string
	cred auth.Credential
}

func (s *staticStore) Get(_ context.Context, serverAddress string) (auth.Credential, error) {
	host := serverHost(serverAddress)
	if host == s.host || (isDockerHub(host) && isDockerHub(s.host)) {
		return s.cred, nil
	}
	return auth.EmptyCredential, nil
}

func (s *staticStore) Put(context.Context, string, auth.Credential) error {
	return errReadOnlyStore
}

func (s *staticStore) Delete(context.Context, string) error {
	return errReadOnlyStore
}

// hubFallbackStore retries Docker Hub lookups under its alternate hostnames.
type hubFallbackStore struct {
	credentials.Store
}

var dockerHubAliases = []string{
	"https://index.docker.io/v1/",
	"index.docker.io",
	"registry-1.docker.io",
	"docker.io",
}

func (s *hubFallbackStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	cred, err := s.Store.Get(ctx, serverAddress)
	if err == nil && !emptyCredential(cred) {
		return cred, nil
	}
	if !isDockerHub(serverHost(serverAddress)) {
		return cred, err
	}
	for _, alias := range dockerHubAliases {
		if alias == serverAddress {
			continue
		}
		if alt, altErr := s.Store.Get(ctx, alias); altErr == nil && !emptyCredential(alt) {
			return alt, nil
		}
	}
	return cred, err
}

func isDockerHub(hostport string) bool {
	switch hostname(hostport) {
	case "docker.io", "registry-1.docker.io", "index.docker.io":
		return true
	}
	return false
}

// hostname strips the port from host[:port], keeping IPv6 brackets.
func hostname(hostport string) string {
	if strings.HasPrefix(hostport, "[") {
		if i := strings.LastIndexByte(hostport, ']'); i >= 0 {
			return hostport[:i+1]
		}
		return hostport
	}
	if i := strings.LastIndexByte(hostport, ':'); i >= 0 {
		return hostport[:i]
	}
	return hostport
}

// serverHost reduces a server address to host[:port].
func serverHost(addr string) string {
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimPrefix(addr, "http://")
	host, _, _ := strings.Cut(addr, "/")
	return host
}

func emptyCredential(cred auth.Credential) bool {
	return cred.Username == "" && cred.Password == "" && cred.AccessToken == "" && cred.RefreshToken == ""
}
