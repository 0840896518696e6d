//go:build integration

// Package integration tests archive distribution against a real OCI registry.
//
// These tests require Docker and start a registry:2 container with
// testcontainers. Run with: go test -tags=integration ./integration/...
package integration
