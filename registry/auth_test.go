package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/registry/remote/auth"
)

func TestStaticCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := StaticCredentials("https://ghcr.io/v2/", "user", "pass")
	cred, err := store.Get(ctx, "ghcr.io")
	require.NoError(t, err)
	assert.Equal(t, auth.Credential{Username: "user", Password: "pass"}, cred)

	cred, err = store.Get(ctx, "quay.io")
	require.NoError(t, err)
	assert.Equal(t, auth.EmptyCredential, cred)

	hub := StaticCredentials("docker.io", "", "token")
	cred, err = hub.Get(ctx, "registry-1.docker.io")
	require.NoError(t, err)
	assert.Equal(t, "token", cred.AccessToken)

	require.Error(t, store.Put(ctx, "ghcr.io", cred))
	require.Error(t, store.Delete(ctx, "ghcr.io"))
}

func TestHostHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		host string
		hub  bool
	}{
		{"docker.io", "docker.io", true},
		{"https://index.docker.io/v1/", "index.docker.io", true},
		{"registry-1.docker.io:443", "registry-1.docker.io:443", true},
		{"localhost:5000", "localhost:5000", false},
		{"[::1]:5000", "[::1]:5000", false},
	}
	for _, tt := range tests {
		host := serverHost(tt.addr)
		assert.Equal(t, tt.host, host, tt.addr)
		assert.Equal(t, tt.hub, isDockerHub(host), tt.addr)
	}
	assert.Equal(t, "[::1]", hostname("[::1]:5000"))
}

func TestNewRepository(t *testing.T) {
	t.Parallel()

	repo, err := NewRepository("localhost:5000/assets:v1",
		WithPlainHTTP(true),
		WithStaticCredentials("user", "pass"),
		WithUserAgent("test"))
	require.NoError(t, err)
	assert.True(t, repo.PlainHTTP)
	assert.Equal(t, "assets", repo.Reference.Repository)

	client, ok := repo.Client.(*auth.Client)
	require.True(t, ok)
	cred, err := client.Credential(context.Background(), "localhost:5000")
	require.NoError(t, err)
	assert.Equal(t, "user", cred.Username)
	assert.Equal(t, "test", client.Header.Get("User-Agent"))

	_, err = NewRepository("not a reference")
	require.ErrorIs(t, err, ErrInvalidReference)
}
