package auth_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/haulage/pkg/authsdk"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * Each test runs the service image next to its own Redis on a private network.
 */

const (
	testImageName = "haulage-auth-test:latest"

	testPassword = "Str0ng!Pass"
)

// TestMain builds the Docker image once before all tests and removes it after.
func TestMain(m *testing.M) {
	if testing.Short() {
		fmt.Fprintln(os.Stdout, "skipping end-to-end tests in short mode")
		os.Exit(0)
	}

	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// relaxedRateLimits lifts the edge limits so lockout and rotation tests are
// not cut short by 429s.
var relaxedRateLimits = map[string]string{
	"RATE_LIMIT_STRICT_REQUESTS":   "1000",
	"RATE_LIMIT_STRICT_WINDOW_SEC": "60",
	"RATE_LIMIT_STRICT_BURST":      "1000",
	"RATE_LIMIT_MODERATE_REQUESTS": "1000",
	"RATE_LIMIT_MODERATE_BURST":    "1000",
}

// setupAuthStack starts Redis and the auth service and returns an SDK client
// pointed at the service. extraEnv overrides the defaults.
func setupAuthStack(t *testing.T, extraEnv map[string]string) *authsdk.SDKClient {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := nw.Remove(ctx); err != nil {
			t.Logf("failed to remove network: %v", err)
		}
	})

	redis, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "redis:7-alpine",
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {"redis"}},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	terminateOnCleanup(t, redis)

	env := map[string]string{
		"ENV":                "test",
		"AUTH_DATABASE_FILE": "/data/auth.db",
		"AUTH_PEPPER_FILE":   "/data/pepper",
		"AUTH_ISSUER":        "haulage-auth",
		"AUTH_AUDIENCE":      "haulage",
		"JWT_ACCESS_SECRET":  "e2e-access-secret-0123456789abcdef0123",
		"JWT_REFRESH_SECRET": "e2e-refresh-secret-0123456789abcdef012",
		"REDIS_ADDR":         "redis:6379",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	auth, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Networks:     []string{nw.Name},
			Env:          env,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	terminateOnCleanup(t, auth)

	host, err := auth.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := auth.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return authsdk.NewSDKClient(fmt.Sprintf("http://%s:%s", host, mappedPort.Port()))
}

func setupAuthContainer(t *testing.T) *authsdk.SDKClient {
	t.Helper()
	return setupAuthStack(t, relaxedRateLimits)
}

func terminateOnCleanup(t *testing.T, c testcontainers.Container) {
	t.Helper()
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
}

// registerBuyer registers email with the shared test password.
func registerBuyer(t *testing.T, client *authsdk.SDKClient, email string) *authsdk.SessionResponse {
	t.Helper()
	resp, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Email:     email,
		Password:  testPassword,
		Role:      "buyer",
		FirstName: "Ana",
		LastName:  "Silva",
	})
	require.NoError(t, err)
	assertSessionResponse(t, resp)
	return resp
}

func assertSessionResponse(t *testing.T, resp *authsdk.SessionResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "access token should be present")
	require.NotEmpty(t, resp.RefreshToken, "refresh token should be present")
	require.Equal(t, "Bearer", resp.TokenType)
	require.Positive(t, resp.ExpiresIn)
	require.NotEmpty(t, resp.Account.ID)
}

// assertAPIError checks err is an *authsdk.APIError with want's code and status.
func assertAPIError(t *testing.T, err error, want *authsdk.APIError, context string) {
	t.Helper()
	require.Error(t, err, context)
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "%s: want *authsdk.APIError, got %T: %v", context, err, err)
	require.Equal(t, want.Code, apiErr.Code, context)
	require.Equal(t, want.StatusCode, apiErr.StatusCode, context)
}

func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
	require.NotEmpty(t, health.Version)
}
