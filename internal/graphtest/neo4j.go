// Package graphtest provides testcontainers-based Neo4j setup for
// integration tests, trimmed from the teacher's wider container-testing
// toolkit down to the one backend this engine writes to.
//
// Integration tests using this package should use the integration build
// tag:
//
//	//go:build integration
package graphtest

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ContainerCleanup terminates a container started by SetupNeo4j. Safe to
// call even if setup failed; it is a no-op in that case.
type ContainerCleanup func()

// Neo4jConfig holds configuration for the Neo4j testcontainer.
type Neo4jConfig struct {
	// Image is the Docker image to use (default: "neo4j:5-community")
	Image string
	// Password is the neo4j user's password (default: "testpassword")
	Password string
	// StartupTimeout bounds how long to wait for Neo4j to accept connections.
	StartupTimeout time.Duration
}

// DefaultNeo4jConfig returns the default Neo4j configuration for testing.
func DefaultNeo4jConfig() Neo4jConfig {
	return Neo4jConfig{
		Image:          "neo4j:5-community",
		Password:       "testpassword",
		StartupTimeout: 90 * time.Second,
	}
}

// SetupNeo4j starts a Neo4j container for integration testing and returns
// its Bolt URI, the "neo4j" username, and a cleanup function.
func SetupNeo4j(ctx context.Context, cfg *Neo4jConfig) (uri, username string, cleanup ContainerCleanup, err error) {
	if cfg == nil {
		defaultCfg := DefaultNeo4jConfig()
		cfg = &defaultCfg
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.Image,
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH":                           fmt.Sprintf("neo4j/%s", cfg.Password),
			"NEO4J_ACCEPT_LICENSE_AGREEMENT":       "yes",
			"NEO4J_dbms_security_procedures_unrestricted": "apoc.*",
		},
		WaitingFor: wait.ForLog("Bolt enabled").WithStartupTimeout(cfg.StartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", "", func() {}, fmt.Errorf("start Neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return "", "", func() {}, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "7687")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", "", func() {}, fmt.Errorf("get mapped Bolt port: %w", err)
	}

	boltURI := fmt.Sprintf("neo4j://%s:%s", host, port.Port())

	cleanup = func() {
		_ = container.Terminate(ctx)
	}

	return boltURI, "neo4j", cleanup, nil
}

// Password returns cfg's password, or the default if cfg is nil. Callers
// that used SetupNeo4j's zero-value config need this to open a driver.
func Password(cfg *Neo4jConfig) string {
	if cfg == nil {
		return DefaultNeo4jConfig().Password
	}
	return cfg.Password
}
