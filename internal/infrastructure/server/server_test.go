package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/archive"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.Logging.Level = "error"
	cfg.Server.Port = "0"
	cfg.Server.ArtifactDir = t.TempDir()
	cfg.Loader.StagingDir = t.TempDir()
	cfg.RateLimit.Enabled = false
	return cfg
}

func buildInto(t *testing.T, dir string) *archive.Artifact {
	t.Helper()
	return buildPackage(t, dir, "echo")
}

func buildPackage(t *testing.T, dir, pkgID string) *archive.Artifact {
	t.Helper()
	project := testutil.WriteTree(t, map[string]string{
		"agent.yaml":  fmt.Sprintf("id: %s\nversion: 0.1.0\nentrypoint: src.main:handler\nexports:\n  - id: echo\n    path: src.main:echo\n", pkgID),
		"src/main.py": "def handler(ctx): pass\ndef echo(x): return x\n",
	})

	opts := archive.DefaultOptions()
	opts.OutputDir = dir
	art, err := archive.NewBuilder(opts, nil, nil).Build(context.Background(), project)
	require.NoError(t, err)
	return art
}

func TestNewServerRejectsUnknownPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry.UpgradePolicy = "yolo"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestSeedAndServe(t *testing.T) {
	cfg := testConfig(t)
	buildInto(t, cfg.Server.ArtifactDir)

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	echo := testutil.NewMockInvoker(t, "pong")
	srv.Resolver().Register("echo", "src.main:echo", echo)

	report, err := srv.Seed(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Loaded, 1)
	assert.Empty(t, report.Failed)

	_, ok := srv.Registry().Lookup("echo")
	assert.True(t, ok)

	for _, target := range []string{"/health", "/mounts", "/mounts/echo", "/exports/echo", "/metrics"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, w.Code, target)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/exports/echo/invoke", strings.NewReader(`{"params":{"x":1}}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":"pong"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	echo.AssertNumberOfCalls(t, "Invoke", 1)

	require.NoError(t, srv.Close(context.Background()))
	_, ok = srv.Registry().Package("echo")
	assert.False(t, ok, "close unmounts every package")
}

func TestSeedWithoutArtifactDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.ArtifactDir = ""

	srv, err := NewServer(cfg)
	require.NoError(t, err)

	report, err := srv.Seed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Loaded)
	assert.NoError(t, srv.Close(context.Background()))
}

func TestSeedAfterCloseMountsNothing(t *testing.T) {
	cfg := testConfig(t)
	buildInto(t, cfg.Server.ArtifactDir)

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Close(context.Background()))

	_, err = srv.Seed(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, srv.Registry().List())

	staged, err := os.ReadDir(cfg.Loader.StagingDir)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestCloseWaitsForRunningSeed(t *testing.T) {
	cfg := testConfig(t)
	for i := 0; i < 8; i++ {
		buildPackage(t, cfg.Server.ArtifactDir, fmt.Sprintf("agent-%d", i))
	}

	srv, err := NewServer(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := srv.Seed(context.Background())
		done <- err
	}()

	require.NoError(t, srv.Close(context.Background()))
	select {
	case err := <-done:
		if err != nil {
			assert.ErrorIs(t, err, ErrClosed)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("seed did not return")
	}

	assert.Empty(t, srv.Registry().List(), "nothing stays mounted after close")
	staged, err := os.ReadDir(cfg.Loader.StagingDir)
	require.NoError(t, err)
	assert.Empty(t, staged)
}
