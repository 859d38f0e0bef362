package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantalign/internal/config"
	"grantalign/internal/inference"
	"grantalign/internal/storage"
)

func loadTestConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	c, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	return c
}

func TestNewStorage_Local(t *testing.T) {
	c := loadTestConfig(t)
	st, err := newStorage(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &storage.Local{}, st)
}

func TestNewStorage_DropboxNeedsCredentials(t *testing.T) {
	c := loadTestConfig(t)
	c.Storage.Type = "dropbox"
	c.Storage.Dropbox = &config.DropboxConfig{AppKeyEnv: "NO_SUCH_KEY", AppSecretEnv: "NO_SUCH_SECRET", RefreshTokenEnv: "NO_SUCH_TOKEN"}
	t.Setenv("NO_SUCH_KEY", "")
	_, err := newStorage(context.Background(), c)
	assert.Error(t, err)
}

func TestNewInferencer_WrapsWithRetry(t *testing.T) {
	c := loadTestConfig(t)
	inf, err := newInferencer(context.Background(), c, nil)
	require.NoError(t, err)
	assert.IsType(t, &inference.Retrying{}, inf)

	c.Inference.Type = "telepathy"
	_, err = newInferencer(context.Background(), c, nil)
	assert.ErrorContains(t, err, "telepathy")
}

func TestBuildLogger(t *testing.T) {
	_, err := buildLogger(config.LoggingConfig{Level: "shouting"}, "")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "logs", "grantalign.log")
	l, err := buildLogger(config.LoggingConfig{Level: "debug"}, file)
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, l.Sync())
	assert.FileExists(t, file)
}
