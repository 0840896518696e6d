//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/meigma/vbf"
	"github.com/meigma/vbf/internal/testutil"
	"github.com/meigma/vbf/registry"
)

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the address of a registry shared by all tests,
// starting it on first use.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		registryAddr, registryErr = startRegistry(context.Background())
	})
	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}
	return registryAddr
}

func startRegistry(ctx context.Context) (string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "registry:2",
			ExposedPorts: []string{"5000/tcp"},
			WaitingFor: wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(func(status int) bool {
				return status >= 200 && status < 300
			}),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	// The container is removed by the testcontainers reaper.
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

// repository returns a repository unique to the test.
func repository(tb testing.TB, addr string) *remote.Repository {
	tb.Helper()
	repo, err := registry.NewRepository(fmt.Sprintf("%s/test/%s", addr, testName(tb)), registry.WithPlainHTTP(true))
	require.NoError(tb, err)
	return repo
}

func testName(tb testing.TB) string {
	name := []byte(tb.Name())
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
			name[i] = c + ('a' - 'A')
		default:
			name[i] = '-'
		}
	}
	return string(name)
}

// buildArchive writes files to a fresh directory and archives it.
func buildArchive(tb testing.TB, files map[string][]byte) string {
	tb.Helper()
	src := tb.TempDir()
	testutil.WriteTree(tb, src, files)
	out := filepath.Join(tb.TempDir(), "archive.vbf")
	_, err := vbf.BuildFile(context.Background(), src, out, vbf.BuildWithSortedPaths(true))
	require.NoError(tb, err)
	return out
}

func assertFilesMatch(tb testing.TB, a *vbf.Archive, want map[string][]byte) {
	tb.Helper()
	require.Equal(tb, len(want), a.Len(), "archive entry count")
	for name, data := range want {
		got, err := a.ReadFile(name)
		require.NoError(tb, err, "ReadFile(%q)", name)
		require.Equal(tb, data, got, "content mismatch for %q", name)
	}
}

var nestedFiles = map[string][]byte{
	"root.txt":          []byte("root file"),
	"dir1/a.txt":        []byte("file a in dir1"),
	"dir1/sub/c.txt":    []byte("file c in dir1/sub"),
	"dir2/deep/y.bin":   testutil.Random(3, 200_000),
	"dir2/deep/z.txt":   testutil.Compressible(150_000),
	"empty/placeholder": {},
}
